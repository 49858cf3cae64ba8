package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stage names for RecordStage.
const (
	StageParse = "parse"
	StageStore = "store"
)

// Metrics holds the order pipeline instruments.
type Metrics struct {
	messagesProcessed metric.Int64Counter
	ordersCreated     metric.Int64Counter
	ordersRejected    metric.Int64Counter
	ordersFulfilled   metric.Int64Counter
	errors            metric.Int64Counter
	operationDuration metric.Float64Histogram
	stageDuration     metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.messagesProcessed, "orderflow_messages_processed_total", "Order messages received by place", "{message}"},
		{&m.ordersCreated, "orderflow_orders_created_total", "Orders persisted", "{order}"},
		{&m.ordersRejected, "orderflow_orders_rejected_total", "Operations that returned an error response", "{operation}"},
		{&m.ordersFulfilled, "orderflow_orders_fulfilled_total", "Orders moved to FULFILLED", "{order}"},
		{&m.errors, "orderflow_errors_total", "Error responses by code", "{error}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error

	m.operationDuration, err = meter.Float64Histogram(
		"orderflow_operation_duration_seconds",
		metric.WithDescription("Duration of order service operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operation_duration histogram: %w", err)
	}

	m.stageDuration, err = meter.Float64Histogram(
		"orderflow_stage_duration_seconds",
		metric.WithDescription("Duration of the parse and store stages of place"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordMessageProcessed(ctx context.Context) {
	m.messagesProcessed.Add(ctx, 1)
}

func (m *Metrics) RecordOrderCreated(ctx context.Context) {
	m.ordersCreated.Add(ctx, 1)
}

func (m *Metrics) RecordOrderFulfilled(ctx context.Context) {
	m.ordersFulfilled.Add(ctx, 1)
}

// RecordError counts a rejected operation under its error code.
func (m *Metrics) RecordError(ctx context.Context, command, code string) {
	m.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *Metrics) RecordOperationDuration(ctx context.Context, command string, durationSeconds float64) {
	m.operationDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("command", command),
	))
}

func (m *Metrics) RecordStage(ctx context.Context, stage string, durationSeconds float64) {
	m.stageDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("stage", stage),
	))
}
