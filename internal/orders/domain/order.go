package domain

import (
	"fmt"
	"math"
	"time"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusFulfilled OrderStatus = "FULFILLED"
)

// TimestampLayout is the wire format for every order timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// CatalogueItem is a product that can be ordered.
type CatalogueItem struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPricePence int64  `json:"unit_price_pence"`
}

// OrderLine is a single SKU within an order.
type OrderLine struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPricePence int64  `json:"unit_price_pence"`
	LineTotalPence int64  `json:"line_total_pence"`
}

// NewOrderLine prices qty units of item.
func NewOrderLine(item CatalogueItem, qty int) OrderLine {
	return OrderLine{
		SKU:            item.SKU,
		Qty:            qty,
		UnitPricePence: item.UnitPricePence,
		LineTotalPence: int64(qty) * item.UnitPricePence,
	}
}

// Order represents a text message order placed by a mobile sender.
type Order struct {
	ID          string
	Mobile      string
	RawMessage  string
	Items       []OrderLine
	Status      OrderStatus
	CreatedAt   time.Time
	FulfilledAt *time.Time
	TotalPence  int64
}

// NewOrder builds a pending order. Items must already be sorted by SKU.
func NewOrder(id, mobile, rawMessage string, items []OrderLine, createdAt time.Time) Order {
	var total int64
	for _, line := range items {
		total += line.LineTotalPence
	}
	return Order{
		ID:         id,
		Mobile:     mobile,
		RawMessage: rawMessage,
		Items:      append([]OrderLine(nil), items...),
		Status:     StatusPending,
		CreatedAt:  createdAt.UTC().Truncate(time.Second),
		TotalPence: total,
	}
}

// WithID returns a copy of the order carrying a different identifier.
func (o Order) WithID(id string) Order {
	clone := o.Clone()
	clone.ID = id
	return clone
}

// Clone returns a deep copy so callers never share line slices or timestamps.
func (o Order) Clone() Order {
	clone := o
	clone.Items = append([]OrderLine(nil), o.Items...)
	if o.FulfilledAt != nil {
		ts := *o.FulfilledAt
		clone.FulfilledAt = &ts
	}
	return clone
}

// IsTerminal indicates whether the order can no longer change state.
func (o Order) IsTerminal() bool {
	return o.Status == StatusFulfilled
}

// CheckInvariants verifies the arithmetic and ordering rules of a pending order.
func (o Order) CheckInvariants() error {
	if o.Status != StatusPending {
		return NewFailure(CodeInternalError, "Invariant violated: placed order must be PENDING.",
			map[string]any{"status": string(o.Status)})
	}
	if o.FulfilledAt != nil {
		return NewFailure(CodeInternalError, "Invariant violated: pending order has fulfilled_at_utc.", nil)
	}
	if len(o.Items) == 0 {
		return NewFailure(CodeInternalError, "Invariant violated: order has no items.", nil)
	}

	var computed int64
	for i, line := range o.Items {
		if line.Qty < 1 {
			return NewFailure(CodeInternalError, "Invariant violated: qty must be positive.",
				map[string]any{"sku": line.SKU, "qty": line.Qty})
		}
		if line.UnitPricePence < 0 {
			return NewFailure(CodeInternalError, "Invariant violated: unit_price must not be negative.",
				map[string]any{"sku": line.SKU, "unit_price_pence": line.UnitPricePence})
		}
		expected, ok := mulPence(line.Qty, line.UnitPricePence)
		if !ok {
			return NewFailure(CodeInternalError, "Invariant violated: line_total overflows.",
				map[string]any{"sku": line.SKU, "qty": line.Qty, "unit_price_pence": line.UnitPricePence})
		}
		if expected != line.LineTotalPence {
			return NewFailure(CodeInternalError, "Invariant violated: line_total mismatch.",
				map[string]any{"sku": line.SKU, "expected": expected, "actual": line.LineTotalPence})
		}
		if i > 0 && o.Items[i-1].SKU >= line.SKU {
			return NewFailure(CodeInternalError, "Invariant violated: items must be sorted by unique SKU.",
				map[string]any{"sku": line.SKU})
		}
		if computed > math.MaxInt64-expected {
			return NewFailure(CodeInternalError, "Invariant violated: total_pence overflows.",
				map[string]any{"sku": line.SKU})
		}
		computed += expected
	}

	if computed != o.TotalPence {
		return NewFailure(CodeInternalError, "Invariant violated: total_pence mismatch.",
			map[string]any{"computed_total": computed, "total_pence": o.TotalPence})
	}
	return nil
}

// mulPence multiplies non-negative operands, reporting false on int64 overflow.
func mulPence(qty int, price int64) (int64, bool) {
	if qty == 0 || price == 0 {
		return 0, true
	}
	if price > math.MaxInt64/int64(qty) {
		return 0, false
	}
	return int64(qty) * price, true
}

// FormatTimestamp renders t as YYYY-MM-DDTHH:MM:SSZ in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
