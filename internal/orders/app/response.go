package app

import (
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Command names carried in every response.
const (
	CommandPlace   = "place"
	CommandShow    = "show"
	CommandList    = "list"
	CommandFulfill = "fulfill"
)

// Response is the envelope returned by every service operation.
type Response struct {
	OK      bool       `json:"ok"`
	Command string     `json:"command"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    domain.Code    `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorCode returns the failure code, or "" for a successful response.
func (r Response) ErrorCode() domain.Code {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

type LinePayload struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPricePence int64  `json:"unit_price_pence"`
	LineTotalPence int64  `json:"line_total_pence"`
}

// OrderPayload is the place response body.
type OrderPayload struct {
	OrderID      string        `json:"order_id"`
	Mobile       string        `json:"mobile"`
	Status       string        `json:"status"`
	CreatedAtUTC string        `json:"created_at_utc"`
	TotalPence   int64         `json:"total_pence"`
	Items        []LinePayload `json:"items"`
}

// OrderDetailPayload is the show response body.
type OrderDetailPayload struct {
	OrderPayload
	FulfilledAtUTC *string `json:"fulfilled_at_utc"`
}

type OutstandingItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type OutstandingOrder struct {
	OrderID      string            `json:"order_id"`
	CreatedAtUTC string            `json:"created_at_utc"`
	TotalPence   int64             `json:"total_pence"`
	Items        []OutstandingItem `json:"items"`
}

type OutstandingGroup struct {
	Mobile string             `json:"mobile"`
	Orders []OutstandingOrder `json:"orders"`
}

// OutstandingPayload is the list response body.
type OutstandingPayload struct {
	Outstanding           []OutstandingGroup `json:"outstanding"`
	OutstandingOrderCount int                `json:"outstanding_order_count"`
}

// FulfillPayload is the fulfill response body.
type FulfillPayload struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	FulfilledAtUTC string `json:"fulfilled_at_utc"`
	Mobile         string `json:"mobile"`
	TotalPence     int64  `json:"total_pence"`
}

func newOrderPayload(order *domain.Order) OrderPayload {
	items := make([]LinePayload, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, LinePayload(line))
	}
	return OrderPayload{
		OrderID:      order.ID,
		Mobile:       order.Mobile,
		Status:       string(order.Status),
		CreatedAtUTC: domain.FormatTimestamp(order.CreatedAt),
		TotalPence:   order.TotalPence,
		Items:        items,
	}
}

func newOrderDetailPayload(order *domain.Order) OrderDetailPayload {
	payload := OrderDetailPayload{OrderPayload: newOrderPayload(order)}
	if order.FulfilledAt != nil {
		ts := domain.FormatTimestamp(*order.FulfilledAt)
		payload.FulfilledAtUTC = &ts
	}
	return payload
}

func newOutstandingPayload(groups []ports.MobileOrders) OutstandingPayload {
	payload := OutstandingPayload{Outstanding: make([]OutstandingGroup, 0, len(groups))}
	for _, group := range groups {
		orders := make([]OutstandingOrder, 0, len(group.Orders))
		for _, order := range group.Orders {
			items := make([]OutstandingItem, 0, len(order.Items))
			for _, line := range order.Items {
				items = append(items, OutstandingItem{SKU: line.SKU, Qty: line.Qty})
			}
			orders = append(orders, OutstandingOrder{
				OrderID:      order.ID,
				CreatedAtUTC: domain.FormatTimestamp(order.CreatedAt),
				TotalPence:   order.TotalPence,
				Items:        items,
			})
		}
		payload.OutstandingOrderCount += len(orders)
		payload.Outstanding = append(payload.Outstanding, OutstandingGroup{Mobile: group.Mobile, Orders: orders})
	}
	return payload
}

func newFulfillPayload(order *domain.Order) FulfillPayload {
	payload := FulfillPayload{
		OrderID:    order.ID,
		Status:     string(order.Status),
		Mobile:     order.Mobile,
		TotalPence: order.TotalPence,
	}
	if order.FulfilledAt != nil {
		payload.FulfilledAtUTC = domain.FormatTimestamp(*order.FulfilledAt)
	}
	return payload
}
