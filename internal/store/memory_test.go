package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/store"
)

func TestMemoryStore_CreateAndGetOrder(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, store.CreateOrderInput{
		DisplayID:    "MO-1001",
		Email:        "buyer@example.com",
		CurrencyCode: "usd",
		Status:       "pending",
		Metadata:     map[string]string{store.MetaMerchantOrderID: "MO-1001"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := s.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "MO-1001", fetched.DisplayID)
	assert.Equal(t, "MO-1001", fetched.Metadata[store.MetaMerchantOrderID])

	_, err = s.GetOrder(ctx, "order_missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_UpdateOrder(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, store.CreateOrderInput{
		Status:   "pending",
		Metadata: map[string]string{"a": "1"},
	})
	require.NoError(t, err)

	paid := "paid"
	updated, err := s.UpdateOrder(ctx, created.ID, store.UpdateOrderInput{
		Status:   &paid,
		Metadata: map[string]string{"b": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", updated.Status)
	assert.Equal(t, "1", updated.Metadata["a"], "existing metadata should be preserved")
	assert.Equal(t, "2", updated.Metadata["b"])

	_, err = s.UpdateOrder(ctx, "order_missing", store.UpdateOrderInput{Status: &paid})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_ListOrders_NewestFirstAndLimit(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.CreateOrder(ctx, store.CreateOrderInput{DisplayID: string(rune('a' + i))})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct creation times
	}

	orders, total, err := s.ListOrders(ctx, store.ListOrdersFilter{Limit: 3, NewestFirst: true})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, orders, 3)
	assert.Equal(t, "e", orders[0].DisplayID, "newest order should come first")
	assert.Equal(t, "d", orders[1].DisplayID)
}

func TestMemoryStore_FailureHooks(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.CreateOrderErr = errors.New("boom")
	_, err := s.CreateOrder(ctx, store.CreateOrderInput{})
	assert.EqualError(t, err, "boom")

	s.CreateOrderErr = nil
	s.CreatePaymentCollectionErr = errors.New("collection boom")
	_, err = s.CreatePaymentCollection(ctx, store.PaymentCollection{})
	assert.EqualError(t, err, "collection boom")
}

func TestMemoryStore_PaymentsLinkedToOrder(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	pc, err := s.CreatePaymentCollection(ctx, store.PaymentCollection{OrderID: "order_1", Amount: 2000, CurrencyCode: "usd", Status: "completed"})
	require.NoError(t, err)
	assert.NotEmpty(t, pc.ID)

	_, err = s.CreatePayment(ctx, store.Payment{CollectionID: pc.ID, OrderID: "order_1", Amount: 2000, Provider: "gateway"})
	require.NoError(t, err)
	_, err = s.CreatePayment(ctx, store.Payment{OrderID: "order_2", Amount: 100})
	require.NoError(t, err)

	payments, err := s.ListPayments(ctx, "order_1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, pc.ID, payments[0].CollectionID)
}

func TestMemoryStore_Regions(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateRegion(ctx, store.Region{Name: "EU", CurrencyCode: "eur", Countries: []string{"de", "fr"}})
	require.NoError(t, err)
	_, err = s.CreateRegion(ctx, store.Region{Name: "US", CurrencyCode: "usd", Countries: []string{"us"}})
	require.NoError(t, err)

	regions, err := s.ListRegions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "EU", regions[0].Name, "regions should keep insertion order")
	assert.NotEmpty(t, regions[0].ID)
}
