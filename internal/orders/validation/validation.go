// Package validation holds the pure input checks run by the order service.
// Each check returns the canonical value or a *domain.Failure.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// DefaultMaxMessageLen is the longest accepted message, in characters.
const DefaultMaxMessageLen = 256

var (
	mobilePattern   = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	orderIDPattern  = regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)
	authCodePattern = regexp.MustCompile(`^\d{6}$`)
)

// Mobile validates an E.164 number and returns it trimmed.
func Mobile(mobile string) (string, error) {
	mobile = strings.TrimSpace(mobile)
	if !mobilePattern.MatchString(mobile) {
		return "", domain.NewFailure(domain.CodeInvalidMobile, "Invalid mobile number format.", nil)
	}
	return mobile, nil
}

// MessageLength rejects messages longer than maxLen once a single trailing
// newline is removed.
func MessageLength(message string, maxLen int) error {
	normalized := strings.TrimSuffix(message, "\n")
	if utf8.RuneCountInString(normalized) > maxLen {
		return domain.NewFailure(domain.CodeMessageTooLong,
			fmt.Sprintf("Message exceeds maximum length of %d characters.", maxLen),
			map[string]any{"max_len": maxLen})
	}
	return nil
}

// OrderID validates the ORD-XXXXXXXX identifier format.
func OrderID(orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if !orderIDPattern.MatchString(orderID) {
		return "", domain.NewFailure(domain.CodeParseError, "Invalid order ID format.",
			map[string]any{"field": "order_id"})
	}
	return orderID, nil
}

// AuthCodeFormat checks that code is six digits. It does not check the value.
func AuthCodeFormat(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !authCodePattern.MatchString(code) {
		return "", domain.NewFailure(domain.CodeParseError, "Invalid auth code format.",
			map[string]any{"field": "auth_code"})
	}
	return code, nil
}
