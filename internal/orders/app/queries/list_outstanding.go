package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/orderflow/internal/orders/ports"
)

type ListOutstandingQuery struct{}

// ListOutstandingQueryHandler returns every pending order grouped by mobile.
type ListOutstandingQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOutstandingQueryHandler(repo ports.OrderRepository) *ListOutstandingQueryHandler {
	return &ListOutstandingQueryHandler{repo: repo}
}

func (h *ListOutstandingQueryHandler) Handle(ctx context.Context, _ ListOutstandingQuery) ([]ports.MobileOrders, error) {
	groups, err := h.repo.ListOutstandingByMobile(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outstanding orders: %w", err)
	}
	return groups, nil
}
