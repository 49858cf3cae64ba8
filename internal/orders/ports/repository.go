package ports

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	// InitSchema brings the backing store up to date. It is safe to call repeatedly.
	InitSchema(ctx context.Context) error
	// Create stores a new pending order with all of its lines, or nothing.
	Create(ctx context.Context, order domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	// ListOutstandingByMobile groups pending orders by mobile, both ascending.
	ListOutstandingByMobile(ctx context.Context) ([]MobileOrders, error)
	// Fulfill moves a pending order to FULFILLED exactly once and returns it.
	Fulfill(ctx context.Context, id string, fulfilledAt time.Time) (*domain.Order, error)
}

// MobileOrders is the pending orders of one sender, ordered by (CreatedAt, ID).
type MobileOrders struct {
	Mobile string
	Orders []domain.Order
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyExists is returned when an order ID is already taken.
	ErrAlreadyExists = errors.New("order already exists")
	// ErrAlreadyFulfilled is returned when fulfilling a non-pending order.
	ErrAlreadyFulfilled = errors.New("order already fulfilled")
	// ErrDatabase wraps every storage fault.
	ErrDatabase = errors.New("database error")
)
