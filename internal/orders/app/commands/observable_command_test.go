package commands_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/domain"
)

type handlerFunc func(ctx context.Context, cmd commands.FulfillOrderCommand) (*domain.Order, error)

func (f handlerFunc) Handle(ctx context.Context, cmd commands.FulfillOrderCommand) (*domain.Order, error) {
	return f(ctx, cmd)
}

func TestObservableCommandHandler(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })

	ok := commands.NewObservableCommandHandler[commands.FulfillOrderCommand, *domain.Order]("FulfillOrder",
		handlerFunc(func(context.Context, commands.FulfillOrderCommand) (*domain.Order, error) {
			return &domain.Order{ID: "ORD-0000000A", Status: domain.StatusFulfilled, TotalPence: 420}, nil
		}), slog.New(slog.DiscardHandler))
	failing := commands.NewObservableCommandHandler[commands.FulfillOrderCommand, *domain.Order]("FulfillOrder",
		handlerFunc(func(context.Context, commands.FulfillOrderCommand) (*domain.Order, error) {
			return nil, errors.New("boom")
		}), slog.New(slog.DiscardHandler))

	if _, err := ok.Handle(context.Background(), commands.FulfillOrderCommand{OrderID: "ORD-0000000A"}); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if _, err := failing.Handle(context.Background(), commands.FulfillOrderCommand{OrderID: "ORD-0000000B"}); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "FulfillOrder.Handle" {
		t.Errorf("expected span FulfillOrder.Handle, got %s", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("expected Error status, got %v", spans[1].Status.Code)
	}

	found := false
	for _, attr := range spans[0].Attributes {
		if attr.Key == "order.total_pence" && attr.Value.AsInt64() == 420 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected order.total_pence attribute, got %v", spans[0].Attributes)
	}
}
