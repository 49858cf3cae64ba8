package commands

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/orders/validation"
)

type FulfillOrderCommand struct {
	OrderID  string
	AuthCode string
}

func (c FulfillOrderCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("order.id", c.OrderID)}
}

// FulfillOrderCommandHandler authorizes and performs the PENDING to FULFILLED transition.
type FulfillOrderCommandHandler struct {
	repo  ports.OrderRepository
	auth  ports.Authorizer
	clock ports.Clock
}

func NewFulfillOrderCommandHandler(repo ports.OrderRepository, auth ports.Authorizer, clock ports.Clock) *FulfillOrderCommandHandler {
	return &FulfillOrderCommandHandler{repo: repo, auth: auth, clock: clock}
}

func (h *FulfillOrderCommandHandler) Handle(ctx context.Context, cmd FulfillOrderCommand) (*domain.Order, error) {
	orderID, err := validation.OrderID(cmd.OrderID)
	if err != nil {
		return nil, err
	}
	code, err := validation.AuthCodeFormat(cmd.AuthCode)
	if err != nil {
		return nil, err
	}
	if !h.auth.Check(code) {
		return nil, domain.NewFailure(domain.CodeUnauthorized, "Unauthorized to fulfill order.", nil)
	}

	order, err := h.repo.Fulfill(ctx, orderID, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("fulfill order %s: %w", orderID, err)
	}
	return order, nil
}
