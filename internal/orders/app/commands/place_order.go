package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/parser"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/orders/validation"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

// MaxCreateAttempts bounds how many IDs place tries before giving up.
const MaxCreateAttempts = 5

type PlaceOrderCommand struct {
	Mobile  string
	Message string
}

func (c PlaceOrderCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("message.length", utf8.RuneCountInString(c.Message)),
	}
}

// PlaceOrderDeps are the collaborators of PlaceOrderCommandHandler.
type PlaceOrderDeps struct {
	Repository  ports.OrderRepository
	Catalogue   ports.Catalogue
	Clock       ports.Clock
	IDs         ports.IDGenerator
	Diagnostics ports.DiagnosticsSink
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Limits      Limits
}

// PlaceOrderCommandHandler validates, prices and stores a new order.
type PlaceOrderCommandHandler struct {
	deps PlaceOrderDeps
}

func NewPlaceOrderCommandHandler(deps PlaceOrderDeps) *PlaceOrderCommandHandler {
	deps.Limits = deps.Limits.WithDefaults()
	return &PlaceOrderCommandHandler{deps: deps}
}

// Handle runs the checks in a fixed order; the first failure wins.
func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	d := h.deps

	d.Diagnostics.Record(ctx, "place.start", map[string]any{
		"mobile":      cmd.Mobile,
		"message_len": utf8.RuneCountInString(strings.TrimSuffix(cmd.Message, "\n")),
	})

	mobile, err := validation.Mobile(cmd.Mobile)
	if err != nil {
		return nil, err
	}
	d.Diagnostics.Record(ctx, "place.mobile_ok", map[string]any{"mobile": mobile})

	if err := validation.MessageLength(cmd.Message, d.Limits.MaxMessageLen); err != nil {
		return nil, err
	}

	parseStart := time.Now()
	lines, err := h.priceMessage(ctx, cmd.Message)
	d.Metrics.RecordStage(ctx, metrics.StageParse, time.Since(parseStart).Seconds())
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(d.IDs.NewID(), mobile, cmd.Message, lines, d.Clock.Now())
	if err := order.CheckInvariants(); err != nil {
		return nil, err
	}

	storeStart := time.Now()
	order, err = h.createWithRetry(ctx, order)
	d.Metrics.RecordStage(ctx, metrics.StageStore, time.Since(storeStart).Seconds())
	if err != nil {
		return nil, err
	}

	d.Diagnostics.Record(ctx, "place.stored", map[string]any{
		"order_id":    order.ID,
		"total_pence": order.TotalPence,
	})
	return &order, nil
}

// priceMessage parses the message and resolves every SKU against the
// catalogue, returning lines sorted by SKU.
func (h *PlaceOrderCommandHandler) priceMessage(ctx context.Context, message string) ([]domain.OrderLine, error) {
	quantities, err := parser.Parse(message, h.deps.Limits.MaxItems, h.deps.Limits.MaxQty)
	if err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(quantities))
	for sku := range quantities {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	h.deps.Diagnostics.Record(ctx, "place.parsed", map[string]any{
		"sku_count": len(skus),
		"skus":      skus,
	})

	lines := make([]domain.OrderLine, 0, len(skus))
	for _, sku := range skus {
		item, ok := h.deps.Catalogue.Get(sku)
		if !ok {
			return nil, domain.NewFailure(domain.CodeUnknownItem, "Unknown SKU in order message.",
				map[string]any{"sku": sku})
		}
		lines = append(lines, domain.NewOrderLine(item, quantities[sku]))
	}
	return lines, nil
}

func (h *PlaceOrderCommandHandler) createWithRetry(ctx context.Context, order domain.Order) (domain.Order, error) {
	for attempt := 1; ; attempt++ {
		err := h.deps.Repository.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, ports.ErrAlreadyExists) {
			return domain.Order{}, fmt.Errorf("create order %s: %w", order.ID, err)
		}
		h.deps.Logger.DebugContext(ctx, "order id collision", "order_id", order.ID, "attempt", attempt)
		telemetry.AddSpanEvent(trace.SpanFromContext(ctx), "order.id_collision",
			attribute.String("order.id", order.ID), attribute.Int("attempt", attempt))
		if attempt == MaxCreateAttempts {
			break
		}
		order = order.WithID(h.deps.IDs.NewID())
	}

	return domain.Order{}, fmt.Errorf("create order after %d attempts: %w", MaxCreateAttempts,
		domain.NewFailure(domain.CodeInternalError, "Order ID collision.", nil))
}
