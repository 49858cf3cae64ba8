package app_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/dejobratic/orderflow/internal/auth"
	"github.com/dejobratic/orderflow/internal/catalogue"
	"github.com/dejobratic/orderflow/internal/clock"
	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/diagnostics"
	"github.com/dejobratic/orderflow/internal/idgen"
	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/adapters/sqlstore"
	"github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

const mobile = "+15551234567"

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service *app.Service
	repo    ports.OrderRepository
	clock   *clock.Fixed
	sink    *diagnostics.Memory
	reader  *sdkmetric.ManualReader
}

type option func(*app.Dependencies)

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	m, err := metrics.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	f := &fixture{
		repo:   memory.NewRepository(),
		clock:  clock.NewFixed(now),
		sink:   diagnostics.NewMemory(),
		reader: reader,
	}
	deps := app.Dependencies{
		Repository:  f.repo,
		Catalogue:   catalogue.Default(),
		Clock:       f.clock,
		IDs:         idgen.NewSequential(1),
		Authorizer:  auth.NewSharedCode("123456"),
		Diagnostics: f.sink,
		Metrics:     m,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.repo = deps.Repository

	f.service, err = app.NewService(deps)
	require.NoError(t, err)
	return f
}

func withRepository(repo ports.OrderRepository) option {
	return func(d *app.Dependencies) { d.Repository = repo }
}

func withCatalogue(c ports.Catalogue) option {
	return func(d *app.Dependencies) { d.Catalogue = c }
}

func (f *fixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func toJSON(t *testing.T, resp app.Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func requireError(t *testing.T, resp app.Response, code domain.Code) *app.ErrorBody {
	t.Helper()
	require.False(t, resp.OK, "expected failure, got %+v", resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
	return resp.Error
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := app.NewService(app.Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository is required")

	_, err = app.NewService(app.Dependencies{Repository: memory.NewRepository(), Catalogue: catalogue.Default()})
	assert.ErrorContains(t, err, "clock is required")
}

func TestPlaceSucceeds(t *testing.T) {
	f := newFixture(t)

	resp := f.service.Place(context.Background(), mobile, "ORDER COFFEE=2")

	require.True(t, resp.OK)
	assert.Equal(t, "place", resp.Command)
	payload, ok := resp.Data.(app.OrderPayload)
	require.True(t, ok)
	assert.Equal(t, int64(300), payload.TotalPence)
	assert.Equal(t, "PENDING", payload.Status)
	assert.Equal(t, "2024-01-01T12:00:00Z", payload.CreatedAtUTC)
	assert.Equal(t, []app.LinePayload{{SKU: "COFFEE", Qty: 2, UnitPricePence: 150, LineTotalPence: 300}}, payload.Items)

	envelope := toJSON(t, resp)
	assert.Equal(t, true, envelope["ok"])
	assert.NotContains(t, envelope, "error")
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "ORD-00000001", data["order_id"])
	assert.NotContains(t, data, "fulfilled_at_utc")

	assert.Equal(t, int64(1), f.counter(t, "orderflow_messages_processed_total"))
	assert.Equal(t, int64(1), f.counter(t, "orderflow_orders_created_total"))
	assert.Zero(t, f.counter(t, "orderflow_orders_rejected_total"))
}

func TestPlaceRejectsInvalidMobile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := f.service.Place(ctx, "1555", "ORDER COFFEE=1")

	body := requireError(t, resp, domain.CodeInvalidMobile)
	assert.Equal(t, "Invalid mobile number format.", body.Message)

	groups, err := f.repo.ListOutstandingByMobile(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	envelope := toJSON(t, resp)
	assert.NotContains(t, envelope, "data")
	assert.NotContains(t, envelope["error"], "details")

	assert.Equal(t, int64(1), f.counter(t, "orderflow_messages_processed_total"))
	assert.Equal(t, int64(1), f.counter(t, "orderflow_orders_rejected_total"))
	assert.Equal(t, int64(1), f.counter(t, "orderflow_errors_total"))
}

func TestPlaceRejectsTooManyItems(t *testing.T) {
	f := newFixture(t)

	resp := f.service.Place(context.Background(), mobile, "ORDER "+strings.Repeat("COFFEE=1 ", 21))

	body := requireError(t, resp, domain.CodeTooManyItems)
	assert.Equal(t, map[string]any{"max_items": 20}, body.Details)
}

func TestPlaceRejectsUnknownItem(t *testing.T) {
	f := newFixture(t)

	resp := f.service.Place(context.Background(), mobile, "ORDER PIZZA=1")

	body := requireError(t, resp, domain.CodeUnknownItem)
	assert.Equal(t, "Unknown SKU in order message.", body.Message)
	assert.Equal(t, map[string]any{"sku": "PIZZA"}, body.Details)

	events := f.sink.Events()
	last := events[len(events)-1]
	assert.Equal(t, "error", last.Event)
	assert.Equal(t, "place", last.Payload["command"])
	assert.Equal(t, "UNKNOWN_ITEM", last.Payload["code"])
}

func TestPlaceHonoursLimits(t *testing.T) {
	f := newFixture(t, func(d *app.Dependencies) {
		d.Limits = app.Limits{MaxMessageLen: 10}
	})

	resp := f.service.Place(context.Background(), mobile, "ORDER COFFEE TEA")

	body := requireError(t, resp, domain.CodeMessageTooLong)
	assert.Equal(t, map[string]any{"max_len": 10}, body.Details)
}

func TestPlaceCollisionExhaustion(t *testing.T) {
	f := newFixture(t, func(d *app.Dependencies) {
		d.IDs = idgen.NewScripted(nil, "ORD-00000001", "ORD-00000001", "ORD-00000001", "ORD-00000001", "ORD-00000001", "ORD-00000001")
	})
	ctx := context.Background()

	require.True(t, f.service.Place(ctx, mobile, "ORDER TEA").OK)

	resp := f.service.Place(ctx, mobile, "ORDER COFFEE")
	body := requireError(t, resp, domain.CodeInternalError)
	assert.Equal(t, "Order ID collision.", body.Message)
}

func TestFulfillWithWrongCodeKeepsOrderPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	placed := f.service.Place(ctx, mobile, "ORDER COFFEE=2")
	require.True(t, placed.OK)
	orderID := placed.Data.(app.OrderPayload).OrderID

	resp := f.service.Fulfill(ctx, orderID, "000000")
	body := requireError(t, resp, domain.CodeUnauthorized)
	assert.Equal(t, "Unauthorized to fulfill order.", body.Message)

	shown := f.service.Show(ctx, orderID)
	require.True(t, shown.OK)
	detail := shown.Data.(app.OrderDetailPayload)
	assert.Equal(t, "PENDING", detail.Status)
	assert.Nil(t, detail.FulfilledAtUTC)

	data := toJSON(t, shown)["data"].(map[string]any)
	assert.Contains(t, data, "fulfilled_at_utc")
	assert.Nil(t, data["fulfilled_at_utc"])
}

func TestFulfillTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	placed := f.service.Place(ctx, mobile, "ORDER COFFEE=2")
	require.True(t, placed.OK)
	orderID := placed.Data.(app.OrderPayload).OrderID

	f.clock.Advance(90 * time.Minute)
	first := f.service.Fulfill(ctx, orderID, "123456")
	require.True(t, first.OK)
	assert.Equal(t, app.FulfillPayload{
		OrderID:        orderID,
		Status:         "FULFILLED",
		FulfilledAtUTC: "2024-01-01T13:30:00Z",
		Mobile:         mobile,
		TotalPence:     300,
	}, first.Data)

	second := f.service.Fulfill(ctx, orderID, "123456")
	body := requireError(t, second, domain.CodeOrderAlreadyFulfilled)
	assert.Equal(t, "Order already fulfilled.", body.Message)

	shown := f.service.Show(ctx, orderID)
	require.True(t, shown.OK)
	detail := shown.Data.(app.OrderDetailPayload)
	require.NotNil(t, detail.FulfilledAtUTC)
	assert.Equal(t, "2024-01-01T13:30:00Z", *detail.FulfilledAtUTC)

	assert.Equal(t, int64(1), f.counter(t, "orderflow_orders_fulfilled_total"))
}

func TestFulfillValidationOrder(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		orderID  string
		authCode string
		want     domain.Code
	}{
		{"bad id wins over bad code", "bad", "000000", domain.CodeParseError},
		{"bad code format wins over authorization", "ORD-00000001", "abc", domain.CodeParseError},
		{"authorization before lookup", "ORD-FFFFFFFF", "000000", domain.CodeUnauthorized},
		{"lookup last", "ORD-FFFFFFFF", "123456", domain.CodeOrderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireError(t, f.service.Fulfill(context.Background(), tt.orderID, tt.authCode), tt.want)
		})
	}
}

func TestShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requireError(t, f.service.Show(ctx, "ORD-1"), domain.CodeParseError)

	body := requireError(t, f.service.Show(ctx, "ORD-FFFFFFFF"), domain.CodeOrderNotFound)
	assert.Equal(t, "Order not found.", body.Message)
}

func TestListOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.service.Place(ctx, "+15552222222", "ORDER TEA").OK)
	f.clock.Advance(time.Minute)
	require.True(t, f.service.Place(ctx, "+15551111111", "ORDER COFFEE=2 TEA").OK)
	f.clock.Advance(time.Minute)
	require.True(t, f.service.Place(ctx, "+15551111111", "ORDER MUFFIN").OK)
	require.True(t, f.service.Fulfill(ctx, "ORD-00000003", "123456").OK)

	resp := f.service.ListOutstanding(ctx)
	require.True(t, resp.OK)
	assert.Equal(t, "list", resp.Command)
	assert.Equal(t, app.OutstandingPayload{
		Outstanding: []app.OutstandingGroup{
			{Mobile: "+15551111111", Orders: []app.OutstandingOrder{{
				OrderID:      "ORD-00000002",
				CreatedAtUTC: "2024-01-01T12:01:00Z",
				TotalPence:   420,
				Items:        []app.OutstandingItem{{SKU: "COFFEE", Qty: 2}, {SKU: "TEA", Qty: 1}},
			}}},
			{Mobile: "+15552222222", Orders: []app.OutstandingOrder{{
				OrderID:      "ORD-00000001",
				CreatedAtUTC: "2024-01-01T12:00:00Z",
				TotalPence:   120,
				Items:        []app.OutstandingItem{{SKU: "TEA", Qty: 1}},
			}}},
		},
		OutstandingOrderCount: 2,
	}, resp.Data)
}

func TestListOutstandingEmpty(t *testing.T) {
	f := newFixture(t)

	resp := f.service.ListOutstanding(context.Background())

	require.True(t, resp.OK)
	data := toJSON(t, resp)["data"].(map[string]any)
	assert.Equal(t, []any{}, data["outstanding"])
	assert.Equal(t, float64(0), data["outstanding_order_count"])
}

type panickingRepository struct {
	ports.OrderRepository
}

func (panickingRepository) Get(context.Context, string) (*domain.Order, error) {
	panic("corrupted state")
}

func TestPanicBecomesInternalError(t *testing.T) {
	f := newFixture(t, withRepository(panickingRepository{OrderRepository: memory.NewRepository()}))

	resp := f.service.Show(context.Background(), "ORD-00000001")

	body := requireError(t, resp, domain.CodeInternalError)
	assert.Equal(t, "Internal error.", body.Message)
	assert.Equal(t, "show", resp.Command)
	assert.Equal(t, int64(1), f.counter(t, "orderflow_errors_total"))
}

func TestStorageFaultBecomesDatabaseError(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := sqlstore.New(db)
	require.NoError(t, store.InitSchema(ctx))
	_, err = db.ExecContext(ctx, "DROP TABLE order_lines")
	require.NoError(t, err)

	f := newFixture(t, withRepository(store))

	resp := f.service.Place(ctx, mobile, "ORDER COFFEE=2")

	body := requireError(t, resp, domain.CodeDatabaseError)
	assert.Equal(t, "Database error.", body.Message)
	assert.NotContains(t, body.Message, "order_lines")

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Zero(t, count)
	assert.Zero(t, f.counter(t, "orderflow_orders_created_total"))
}

func TestTotalsReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	messages := []string{"ORDER COFFEE", "ORDER tea=3 water=2 coffee", "ORDER SANDWICH=99", "ORDER muffin=4 MUFFIN=5"}
	for _, message := range messages {
		resp := f.service.Place(ctx, mobile, message)
		require.True(t, resp.OK, message)
		payload := resp.Data.(app.OrderPayload)

		var sum int64
		for _, line := range payload.Items {
			assert.Equal(t, int64(line.Qty)*line.UnitPricePence, line.LineTotalPence)
			sum += line.LineTotalPence
		}
		assert.Equal(t, payload.TotalPence, sum, message)
	}
}

func TestPlaceRejectsOverflowingTotalOnEveryBackend(t *testing.T) {
	gold, err := catalogue.Parse([]byte(`{"items":[{"sku":"GOLD","name":"Gold","unit_price_pence":4611686018427387903}]}`))
	require.NoError(t, err)

	backends := map[string]func(t *testing.T) ports.OrderRepository{
		"memory": func(*testing.T) ports.OrderRepository { return memory.NewRepository() },
		"sqlite": func(t *testing.T) ports.OrderRepository {
			db, err := database.Open(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "orders.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			store := sqlstore.New(db)
			require.NoError(t, store.InitSchema(context.Background()))
			return store
		},
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, withRepository(newRepo(t)), withCatalogue(gold))

			resp := f.service.Place(ctx, mobile, "ORDER GOLD=3")

			body := requireError(t, resp, domain.CodeInternalError)
			assert.Contains(t, body.Message, "overflows")
			assert.Zero(t, f.counter(t, "orderflow_orders_created_total"))

			list := f.service.ListOutstanding(ctx)
			require.True(t, list.OK)
			assert.Zero(t, list.Data.(app.OutstandingPayload).OutstandingOrderCount)

			resp = f.service.Place(ctx, mobile, "ORDER GOLD=2")
			require.True(t, resp.OK)
			assert.Equal(t, int64(9223372036854775806), resp.Data.(app.OrderPayload).TotalPence)
		})
	}
}
