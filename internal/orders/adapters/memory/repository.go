package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Repository provides an in-memory store useful for local development and tests.
// Orders are deep-copied on the way in and out.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

// InitSchema is a no-op for the in-memory store.
func (r *Repository) InitSchema(context.Context) error {
	return nil
}

// Create stores a new order instance.
func (r *Repository) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return ports.ErrAlreadyExists
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

// Get fetches a single order by identifier.
func (r *Repository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := order.Clone()
	return &clone, nil
}

// ListOutstandingByMobile returns pending orders grouped by mobile.
func (r *Repository) ListOutstandingByMobile(_ context.Context) ([]ports.MobileOrders, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []domain.Order
	for _, order := range r.orders {
		if order.Status == domain.StatusPending {
			pending = append(pending, order.Clone())
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Mobile != pending[j].Mobile {
			return pending[i].Mobile < pending[j].Mobile
		}
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})

	groups := []ports.MobileOrders{}
	for _, order := range pending {
		if n := len(groups); n > 0 && groups[n-1].Mobile == order.Mobile {
			groups[n-1].Orders = append(groups[n-1].Orders, order)
			continue
		}
		groups = append(groups, ports.MobileOrders{Mobile: order.Mobile, Orders: []domain.Order{order}})
	}
	return groups, nil
}

// Fulfill marks a pending order as fulfilled.
func (r *Repository) Fulfill(_ context.Context, id string, fulfilledAt time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if order.IsTerminal() {
		return nil, ports.ErrAlreadyFulfilled
	}

	ts := fulfilledAt.UTC().Truncate(time.Second)
	order.Status = domain.StatusFulfilled
	order.FulfilledAt = &ts
	r.orders[id] = order

	clone := order.Clone()
	return &clone, nil
}
