package commands

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

type attributer interface {
	Attributes() []attribute.KeyValue
}

// ObservableCommandHandler traces and logs every command passing through it.
type ObservableCommandHandler[C any, R any] struct {
	name    string
	handler CommandHandler[C, R]
	logger  *slog.Logger
}

func NewObservableCommandHandler[C any, R any](name string, handler CommandHandler[C, R], logger *slog.Logger) *ObservableCommandHandler[C, R] {
	return &ObservableCommandHandler[C, R]{
		name:    name,
		handler: handler,
		logger:  logger,
	}
}

func (o *ObservableCommandHandler[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	var attrs []attribute.KeyValue
	if a, ok := any(cmd).(attributer); ok {
		attrs = a.Attributes()
	}
	ctx, span := telemetry.StartSpan(ctx, o.name+".Handle", attrs...)

	o.logger.DebugContext(ctx, "handling command", "command", o.name)

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		o.logger.DebugContext(ctx, "command failed", "command", o.name, "error", err)
		telemetry.EndSpan(span, err)
		return result, err
	}

	if order, ok := any(result).(*domain.Order); ok && order != nil {
		telemetry.AddSpanAttributes(span,
			attribute.String("order.id", order.ID),
			attribute.String("order.status", string(order.Status)),
			attribute.Int64("order.total_pence", order.TotalPence),
		)
		o.logger.InfoContext(ctx, "command succeeded", "command", o.name, "order_id", order.ID)
	}

	telemetry.EndSpan(span, nil)
	return result, nil
}
