package domain

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCart() *Cart {
	now := time.Now()
	return &Cart{
		ID:        "cart-1",
		Owner:     CartOwner{UserID: "user-1"},
		Currency:  "USD",
		Status:    CartStatusActive,
		ExpiresAt: now.Add(30 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCartAddItem(t *testing.T) {
	now := time.Now()

	t.Run("computes totals on an empty cart", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 3, 9.99, nil, now))
		require.Equal(t, 3, cart.TotalItems)
		require.InDelta(t, 29.97, cart.TotalAmount, 0.001)
	})

	t.Run("merges lines with equal product and options", func(t *testing.T) {
		cart := newTestCart()
		opts := SelectedOptions{"size": "12kg", "color": "blue"}
		require.NoError(t, cart.AddItem("p1", 2, 5.00, opts, now))
		require.NoError(t, cart.AddItem("p1", 3, 5.00, SelectedOptions{"color": "blue", "size": "12kg"}, now))

		require.Len(t, cart.Items, 1)
		require.Equal(t, 5, cart.Items[0].Quantity)
		require.Equal(t, 5, cart.TotalItems)
	})

	t.Run("keeps separate lines for different options", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 1, 5.00, SelectedOptions{"size": "6kg"}, now))
		require.NoError(t, cart.AddItem("p1", 1, 5.00, SelectedOptions{"size": "12kg"}, now))
		require.Len(t, cart.Items, 2)
	})

	t.Run("treats nil and empty options as the same line", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 1, 5.00, nil, now))
		require.NoError(t, cart.AddItem("p1", 1, 5.00, SelectedOptions{}, now))
		require.Len(t, cart.Items, 1)
		require.Equal(t, 2, cart.Items[0].Quantity)
	})

	t.Run("clamps merged quantity at the per-line maximum", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 80, 1.00, nil, now))
		require.NoError(t, cart.AddItem("p1", 50, 1.00, nil, now))
		require.Equal(t, MaxLineQuantity, cart.Items[0].Quantity)
	})

	t.Run("rejects out-of-range quantity", func(t *testing.T) {
		cart := newTestCart()
		require.ErrorIs(t, cart.AddItem("p1", 0, 1.00, nil, now), ErrInvalidQuantity)
		require.ErrorIs(t, cart.AddItem("p1", 101, 1.00, nil, now), ErrInvalidQuantity)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		cart := newTestCart()
		require.ErrorIs(t, cart.AddItem("p1", 1, -0.01, nil, now), ErrInvalidPrice)
	})

	t.Run("rejects a new line past the cart limit", func(t *testing.T) {
		cart := newTestCart()
		for i := 0; i < MaxCartLines; i++ {
			require.NoError(t, cart.AddItem(productID(i), 1, 1.00, nil, now))
		}
		require.ErrorIs(t, cart.AddItem("overflow", 1, 1.00, nil, now), ErrCartFull)

		// Merging into an existing line still works at the limit.
		require.NoError(t, cart.AddItem(productID(0), 1, 1.00, nil, now))
		require.Len(t, cart.Items, MaxCartLines)
	})

	t.Run("rounds totals to two decimals", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 3, 0.10, nil, now))
		require.InDelta(t, 0.30, cart.TotalAmount, 0.0001)
	})
}

func TestCartUpdateItem(t *testing.T) {
	now := time.Now()

	t.Run("sets the quantity of an existing line", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 2, 4.00, nil, now))
		require.NoError(t, cart.UpdateItem("p1", 7, now))
		require.Equal(t, 7, cart.TotalItems)
		require.InDelta(t, 28.00, cart.TotalAmount, 0.001)
	})

	t.Run("quantity zero removes the product", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 2, 4.00, nil, now))
		require.NoError(t, cart.UpdateItem("p1", 0, now))
		require.Empty(t, cart.Items)
		require.Zero(t, cart.TotalItems)
		require.Zero(t, cart.TotalAmount)
	})

	t.Run("unknown product fails", func(t *testing.T) {
		cart := newTestCart()
		require.ErrorIs(t, cart.UpdateItem("missing", 1, now), ErrItemNotFound)
	})
}

func TestCartRemoveItem(t *testing.T) {
	now := time.Now()

	t.Run("removes every line for the product regardless of options", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 1, 2.00, SelectedOptions{"size": "6kg"}, now))
		require.NoError(t, cart.AddItem("p1", 1, 2.00, SelectedOptions{"size": "12kg"}, now))
		require.NoError(t, cart.AddItem("p2", 1, 3.00, nil, now))

		require.NoError(t, cart.RemoveItem("p1", now))
		require.Len(t, cart.Items, 1)
		require.Equal(t, "p2", cart.Items[0].ProductID)
		require.InDelta(t, 3.00, cart.TotalAmount, 0.001)
	})

	t.Run("unknown product fails and leaves the cart unchanged", func(t *testing.T) {
		cart := newTestCart()
		require.NoError(t, cart.AddItem("p1", 2, 2.00, nil, now))
		require.ErrorIs(t, cart.RemoveItem("missing", now), ErrItemNotFound)
		require.Equal(t, 2, cart.TotalItems)
	})
}

func TestCartClear(t *testing.T) {
	now := time.Now()
	cart := newTestCart()
	require.NoError(t, cart.AddItem("p1", 2, 2.00, nil, now))

	cart.Clear(now)
	require.Empty(t, cart.Items)
	require.Zero(t, cart.TotalItems)
	require.Zero(t, cart.TotalAmount)
	require.Equal(t, CartStatusAbandoned, cart.Status)
}

func TestCartIsExpired(t *testing.T) {
	now := time.Now()
	cart := newTestCart()

	cart.ExpiresAt = now.Add(time.Hour)
	require.False(t, cart.IsExpired(now))

	cart.ExpiresAt = now.Add(-time.Hour)
	require.True(t, cart.IsExpired(now))

	cart.ExpiresAt = time.Time{}
	require.False(t, cart.IsExpired(now))
}

func TestCartSummary(t *testing.T) {
	now := time.Now()
	cart := newTestCart()
	require.NoError(t, cart.AddItem("p1", 10, 10.00, nil, now))
	cart.Discount = 5.00

	summary := cart.Summary(0.10)
	require.Equal(t, 10, summary.ItemCount)
	require.InDelta(t, 100.00, summary.Subtotal, 0.001)
	require.InDelta(t, 10.00, summary.Tax, 0.001)
	require.InDelta(t, 5.00, summary.Discount, 0.001)
	require.InDelta(t, 105.00, summary.Total, 0.001)
	require.True(t, summary.HasItems)

	empty := newTestCart().Summary(0.10)
	require.False(t, empty.HasItems)
	require.Zero(t, empty.Total)
}

func TestCartOwnerValidate(t *testing.T) {
	require.NoError(t, CartOwner{UserID: "u1"}.Validate())
	require.NoError(t, CartOwner{SessionID: "s1"}.Validate())
	require.ErrorIs(t, CartOwner{}.Validate(), ErrInvalidOwnerKey)
	require.ErrorIs(t, CartOwner{UserID: "u1", SessionID: "s1"}.Validate(), ErrInvalidOwnerKey)
}

func productID(i int) string {
	return "product-" + strconv.Itoa(i)
}
