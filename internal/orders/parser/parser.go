// Package parser turns raw "ORDER ..." text messages into SKU quantities.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

const (
	DefaultMaxItems = 20
	DefaultMaxQty   = 99

	keyword = "ORDER"
)

var skuPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,31}$`)

// Parse aggregates the item tokens of message into uppercase SKU -> quantity.
// Every failure is a *domain.Failure.
func Parse(message string, maxItems, maxQty int) (map[string]int, error) {
	stripped := strings.TrimLeftFunc(message, unicode.IsSpace)
	if stripped == "" {
		return nil, domain.NewFailure(domain.CodeParseError, "Empty message.", map[string]any{"token": ""})
	}

	tokens := strings.Fields(stripped)
	if !strings.EqualFold(tokens[0], keyword) {
		return nil, domain.NewFailure(domain.CodeParseError, "Message must start with ORDER.", nil)
	}

	itemTokens := tokens[1:]
	if len(itemTokens) == 0 {
		return nil, domain.NewFailure(domain.CodeParseError, "Message must include at least one item.", nil)
	}
	if len(itemTokens) > maxItems {
		return nil, domain.NewFailure(domain.CodeTooManyItems,
			fmt.Sprintf("Message contains more than %d items.", maxItems),
			map[string]any{"max_items": maxItems})
	}

	aggregated := make(map[string]int, len(itemTokens))
	for _, token := range itemTokens {
		skuPart, qtyPart, hasQty := strings.Cut(token, "=")
		if !skuPattern.MatchString(skuPart) {
			return nil, domain.NewFailure(domain.CodeParseError, "Invalid SKU token.", map[string]any{"token": token})
		}

		qty := 1
		if hasQty {
			parsed, err := parseQty(qtyPart, maxQty, token)
			if err != nil {
				return nil, err
			}
			qty = parsed
		}

		sku := strings.ToUpper(skuPart)
		aggregated[sku] += qty
		if aggregated[sku] > maxQty {
			return nil, domain.NewFailure(domain.CodeInvalidQuantity,
				"Aggregated quantity exceeds allowed maximum.", map[string]any{"token": token})
		}
	}

	return aggregated, nil
}

func parseQty(value string, maxQty int, token string) (int, error) {
	if !isDigits(value) {
		return 0, domain.NewFailure(domain.CodeInvalidQuantity, "Quantity must be numeric.", map[string]any{"token": token})
	}
	qty, err := strconv.Atoi(value)
	if err != nil || qty < 1 || qty > maxQty {
		// Atoi only fails here on overflow, which is out of range anyway.
		return 0, domain.NewFailure(domain.CodeInvalidQuantity, "Quantity is out of allowed range.", map[string]any{"token": token})
	}
	return qty, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
