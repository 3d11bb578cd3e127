package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/pkg/inventory"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.Orders)

	snap.Products = append(snap.Products, inventory.Product{ID: 1, Name: "Widget", UnitPrice: 10, Stock: 5})
	snap.Orders = append(snap.Orders, inventory.Order{ID: 1, ProductID: 1, Quantity: 2, Status: inventory.StatusActive})
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "Widget", got.Products[0].Name)
}

func TestStoreCopiesOnLoad(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, inventory.Snapshot{
		Products: []inventory.Product{{ID: 1, Name: "Widget", UnitPrice: 10, Stock: 5}},
	}))

	first, err := s.Load(ctx)
	require.NoError(t, err)
	first.Products[0].Stock = 0

	second, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Products[0].Stock, "mutating a loaded snapshot must not leak into the store")
}
