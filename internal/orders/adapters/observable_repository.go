package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

// ObservableRepository wraps an OrderRepository with spans and query metrics.
type ObservableRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableRepository) observe(ctx context.Context, operation string, attrs []attribute.KeyValue, call func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository."+operation,
		append(attrs, attribute.String("operation", operation))...)

	start := time.Now()
	err := call(ctx)
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds(), err)

	telemetry.EndSpan(span, err)
	return err
}

func (r *ObservableRepository) InitSchema(ctx context.Context) error {
	return r.observe(ctx, "init_schema", nil, r.repo.InitSchema)
}

func (r *ObservableRepository) Create(ctx context.Context, order domain.Order) error {
	attrs := []attribute.KeyValue{
		attribute.String("order.id", order.ID),
		attribute.Int("order.line_count", len(order.Items)),
	}
	return r.observe(ctx, "create", attrs, func(ctx context.Context) error {
		return r.repo.Create(ctx, order)
	})
}

func (r *ObservableRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := r.observe(ctx, "get", []attribute.KeyValue{attribute.String("order.id", id)}, func(ctx context.Context) error {
		var err error
		order, err = r.repo.Get(ctx, id)
		return err
	})
	return order, err
}

func (r *ObservableRepository) ListOutstandingByMobile(ctx context.Context) ([]ports.MobileOrders, error) {
	var groups []ports.MobileOrders
	err := r.observe(ctx, "list_outstanding", nil, func(ctx context.Context) error {
		var err error
		groups, err = r.repo.ListOutstandingByMobile(ctx)
		return err
	})
	return groups, err
}

func (r *ObservableRepository) Fulfill(ctx context.Context, id string, fulfilledAt time.Time) (*domain.Order, error) {
	var order *domain.Order
	err := r.observe(ctx, "fulfill", []attribute.KeyValue{attribute.String("order.id", id)}, func(ctx context.Context) error {
		var err error
		order, err = r.repo.Fulfill(ctx, id, fulfilledAt)
		return err
	})
	return order, err
}
