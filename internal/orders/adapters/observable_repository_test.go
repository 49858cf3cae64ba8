package adapters_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/orders/adapters"
	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/orders/ports/repotest"
)

func newObservable(t *testing.T) (*adapters.ObservableRepository, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()

	spans := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans)))
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })

	reader := sdkmetric.NewManualReader()
	metrics, err := database.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	return adapters.NewObservableRepository(memory.NewRepository(), metrics), spans, reader
}

func TestObservableRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) ports.OrderRepository {
		repo, _, _ := newObservable(t)
		return repo
	})
}

func TestObservableRepositoryRecordsSpans(t *testing.T) {
	repo, spans, reader := newObservable(t)
	ctx := context.Background()

	if err := repo.Create(ctx, repotest.NewOrder("ORD-00000001", "+15551234567", time.Now())); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := repo.Get(ctx, "ORD-FFFFFFFF"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got := spans.GetSpans()
	if len(got) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(got))
	}
	if got[0].Name != "OrderRepository.create" || got[0].Status.Code != codes.Ok {
		t.Errorf("unexpected create span %s %v", got[0].Name, got[0].Status)
	}
	if got[1].Name != "OrderRepository.get" || got[1].Status.Code != codes.Error {
		t.Errorf("unexpected get span %s %v", got[1].Name, got[1].Status)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	if !names["db_query_duration_seconds"] || !names["db_query_errors_total"] {
		t.Errorf("expected query metrics, got %v", names)
	}
}
