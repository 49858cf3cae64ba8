// Package repotest is a behavioural suite shared by every OrderRepository backend.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Factory returns an empty repository whose schema has been initialised.
type Factory func(t *testing.T) ports.OrderRepository

var baseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// NewOrder builds a valid pending order for the given id and mobile.
func NewOrder(id, mobile string, createdAt time.Time) domain.Order {
	return domain.NewOrder(id, mobile, "ORDER COFFEE=2 TEA", []domain.OrderLine{
		domain.NewOrderLine(domain.CatalogueItem{SKU: "COFFEE", Name: "Coffee", UnitPricePence: 150}, 2),
		domain.NewOrderLine(domain.CatalogueItem{SKU: "TEA", Name: "Tea", UnitPricePence: 120}, 1),
	}, createdAt)
}

// Run executes the contract against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("init schema is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.InitSchema(context.Background()))
		require.NoError(t, repo.InitSchema(context.Background()))
	})

	t.Run("create then get round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		order := NewOrder("ORD-00000001", "+15551234567", baseTime)

		require.NoError(t, repo.Create(ctx, order))

		got, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, order.Mobile, got.Mobile)
		assert.Equal(t, order.RawMessage, got.RawMessage)
		assert.Equal(t, order.Items, got.Items)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.True(t, order.CreatedAt.Equal(got.CreatedAt))
		assert.Nil(t, got.FulfilledAt)
		assert.Equal(t, int64(420), got.TotalPence)
		assert.NoError(t, got.CheckInvariants())
	})

	t.Run("get missing order", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(context.Background(), "ORD-FFFFFFFF")
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("create duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		order := NewOrder("ORD-00000001", "+15551234567", baseTime)

		require.NoError(t, repo.Create(ctx, order))
		err := repo.Create(ctx, NewOrder("ORD-00000001", "+15550000000", baseTime))
		assert.ErrorIs(t, err, ports.ErrAlreadyExists)

		got, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "+15551234567", got.Mobile)
	})

	t.Run("returned orders are copies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		order := NewOrder("ORD-00000001", "+15551234567", baseTime)
		require.NoError(t, repo.Create(ctx, order))

		order.Items[0].Qty = 42
		got, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		got.Items[0].Qty = 77

		again, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, again.Items[0].Qty)
	})

	t.Run("list outstanding groups and orders", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		orders := []domain.Order{
			NewOrder("ORD-00000003", "+15552222222", baseTime),
			NewOrder("ORD-00000002", "+15551111111", baseTime.Add(time.Minute)),
			NewOrder("ORD-00000001", "+15551111111", baseTime.Add(time.Minute)),
			NewOrder("ORD-00000004", "+15551111111", baseTime),
			NewOrder("ORD-00000005", "+15553333333", baseTime),
		}
		for _, order := range orders {
			require.NoError(t, repo.Create(ctx, order))
		}
		_, err := repo.Fulfill(ctx, "ORD-00000005", baseTime.Add(time.Hour))
		require.NoError(t, err)

		groups, err := repo.ListOutstandingByMobile(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)

		assert.Equal(t, "+15551111111", groups[0].Mobile)
		assert.Equal(t, []string{"ORD-00000004", "ORD-00000001", "ORD-00000002"}, ids(groups[0].Orders))
		assert.Equal(t, "+15552222222", groups[1].Mobile)
		assert.Equal(t, []string{"ORD-00000003"}, ids(groups[1].Orders))

		for _, group := range groups {
			for _, order := range group.Orders {
				assert.Equal(t, domain.StatusPending, order.Status)
				assert.Len(t, order.Items, 2)
			}
		}
	})

	t.Run("list outstanding empty", func(t *testing.T) {
		repo := newRepo(t)
		groups, err := repo.ListOutstandingByMobile(context.Background())
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("fulfill exactly once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		order := NewOrder("ORD-00000001", "+15551234567", baseTime)
		require.NoError(t, repo.Create(ctx, order))

		fulfilledAt := baseTime.Add(2 * time.Hour)
		got, err := repo.Fulfill(ctx, order.ID, fulfilledAt)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFulfilled, got.Status)
		require.NotNil(t, got.FulfilledAt)
		assert.True(t, fulfilledAt.Equal(*got.FulfilledAt))
		assert.Equal(t, order.TotalPence, got.TotalPence)
		assert.Equal(t, order.Items, got.Items)

		_, err = repo.Fulfill(ctx, order.ID, fulfilledAt.Add(time.Hour))
		assert.ErrorIs(t, err, ports.ErrAlreadyFulfilled)

		stored, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.FulfilledAt)
		assert.True(t, fulfilledAt.Equal(*stored.FulfilledAt), "second fulfill must not change the timestamp")
	})

	t.Run("fulfill missing order", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Fulfill(context.Background(), "ORD-FFFFFFFF", baseTime)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})
}

func ids(orders []domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, order := range orders {
		out = append(out, order.ID)
	}
	return out
}
