package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/delivergaz-api/internal/config"
	"github.com/spec-kit/delivergaz-api/internal/domain"
	"github.com/spec-kit/delivergaz-api/internal/events"
)

type memCartRepo struct {
	byID   map[string]*domain.Cart
	active map[string]string
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{byID: map[string]*domain.Cart{}, active: map[string]string{}}
}

func memOwnerKey(owner domain.CartOwner) string {
	if owner.UserID != "" {
		return "u:" + owner.UserID
	}
	return "g:" + owner.SessionID
}

func cloneCart(cart *domain.Cart) *domain.Cart {
	copied := *cart
	copied.Items = append([]domain.CartItem(nil), cart.Items...)
	return &copied
}

func (m *memCartRepo) FindActive(_ context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	id, ok := m.active[memOwnerKey(owner)]
	if !ok {
		return nil, nil
	}
	cart, ok := m.byID[id]
	if !ok || cart.Status != domain.CartStatusActive {
		return nil, nil
	}
	return cloneCart(cart), nil
}

func (m *memCartRepo) Save(_ context.Context, cart *domain.Cart) error {
	m.byID[cart.ID] = cloneCart(cart)
	key := memOwnerKey(cart.Owner)
	if cart.Status == domain.CartStatusActive {
		m.active[key] = cart.ID
	} else if m.active[key] == cart.ID {
		delete(m.active, key)
	}
	return nil
}

func (m *memCartRepo) SaveBoth(ctx context.Context, first, second *domain.Cart) error {
	if err := m.Save(ctx, first); err != nil {
		return err
	}
	return m.Save(ctx, second)
}

func (m *memCartRepo) Reown(ctx context.Context, cart *domain.Cart, previous domain.CartOwner) error {
	if err := m.Save(ctx, cart); err != nil {
		return err
	}
	if m.active[memOwnerKey(previous)] == cart.ID {
		delete(m.active, memOwnerKey(previous))
	}
	return nil
}

func (m *memCartRepo) Delete(_ context.Context, cart *domain.Cart) error {
	delete(m.byID, cart.ID)
	if m.active[memOwnerKey(cart.Owner)] == cart.ID {
		delete(m.active, memOwnerKey(cart.Owner))
	}
	return nil
}

func (m *memCartRepo) DeleteStale(_ context.Context, now, abandonedBefore time.Time) (int, error) {
	removed := 0
	for id, cart := range m.byID {
		stale := cart.IsExpired(now) ||
			(cart.Status == domain.CartStatusAbandoned && cart.UpdatedAt.Before(abandonedBefore))
		if !stale {
			continue
		}
		delete(m.byID, id)
		if m.active[memOwnerKey(cart.Owner)] == id {
			delete(m.active, memOwnerKey(cart.Owner))
		}
		removed++
	}
	return removed, nil
}

type memProductRepo struct {
	quotes map[string]domain.PriceQuote
}

func (m *memProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	quote, ok := m.quotes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.Product{ID: id, Price: quote.Price, InStock: quote.Available}, nil
}

func (m *memProductRepo) GetPriceAndAvailability(_ context.Context, id string) (domain.PriceQuote, error) {
	quote, ok := m.quotes[id]
	if !ok {
		return domain.PriceQuote{}, pgx.ErrNoRows
	}
	return quote, nil
}

func (m *memProductRepo) List(_ context.Context, _ string, _, _ int) ([]domain.Product, error) {
	return nil, nil
}

func testCartConfig() config.CartConfig {
	return config.CartConfig{
		TaxRate:                0.10,
		UserCartTTLDays:        30,
		GuestCartTTLDays:       7,
		AbandonedRetentionDays: 7,
		DefaultCurrency:        "USD",
		CleanupIntervalMinutes: 60,
	}
}

func newTestCartService() (*CartService, *memCartRepo, *memProductRepo) {
	cartRepo := newMemCartRepo()
	productRepo := &memProductRepo{quotes: map[string]domain.PriceQuote{
		"p1": {Price: 9.99, Available: true},
		"p2": {Price: 4.50, Available: true},
		"oos": {Price: 2.00, Available: false},
	}}
	svc := NewCartService(testCartConfig(), CartDependencies{
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		Dispatcher:  events.NewInMemoryDispatcher(),
	}, zap.NewNop())
	return svc, cartRepo, productRepo
}

func TestGetOrCreateCart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user cart with the 30 day horizon", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		now := time.Now()
		svc.now = func() time.Time { return now }

		cart, err := svc.GetOrCreateCart(ctx, domain.CartOwner{UserID: "u1"})
		require.NoError(t, err)
		require.Equal(t, domain.CartStatusActive, cart.Status)
		require.Equal(t, "USD", cart.Currency)
		require.Empty(t, cart.Items)
		require.WithinDuration(t, now.Add(30*24*time.Hour), cart.ExpiresAt, time.Second)
	})

	t.Run("creates a guest cart with the 7 day horizon", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		now := time.Now()
		svc.now = func() time.Time { return now }

		cart, err := svc.GetOrCreateCart(ctx, domain.CartOwner{SessionID: "s1"})
		require.NoError(t, err)
		require.WithinDuration(t, now.Add(7*24*time.Hour), cart.ExpiresAt, time.Second)
	})

	t.Run("returns the same cart on repeat access", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		first, err := svc.GetOrCreateCart(ctx, domain.CartOwner{UserID: "u1"})
		require.NoError(t, err)
		second, err := svc.GetOrCreateCart(ctx, domain.CartOwner{UserID: "u1"})
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("rejects invalid owner keys", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.GetOrCreateCart(ctx, domain.CartOwner{})
		require.ErrorIs(t, err, domain.ErrInvalidOwnerKey)
		_, err = svc.GetOrCreateCart(ctx, domain.CartOwner{UserID: "u1", SessionID: "s1"})
		require.ErrorIs(t, err, domain.ErrInvalidOwnerKey)
	})
}

func TestCartServiceAddItem(t *testing.T) {
	ctx := context.Background()
	owner := domain.CartOwner{UserID: "u1"}

	t.Run("sources the unit price from the catalog", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		cart, err := svc.AddItem(ctx, owner, "p1", 2, nil)
		require.NoError(t, err)
		require.Equal(t, 2, cart.TotalItems)
		require.InDelta(t, 19.98, cart.TotalAmount, 0.001)
	})

	t.Run("rejects unknown products", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.AddItem(ctx, owner, "nope", 1, nil)
		require.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("rejects out of stock products", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.AddItem(ctx, owner, "oos", 1, nil)
		require.ErrorIs(t, err, ErrProductUnavailable)
	})

	t.Run("persists across calls", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
		require.NoError(t, err)
		cart, err := svc.AddItem(ctx, owner, "p1", 2, nil)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		require.Equal(t, 3, cart.Items[0].Quantity)
	})
}

func TestCartServiceUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	owner := domain.CartOwner{UserID: "u1"}

	t.Run("update without a cart fails", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.UpdateItem(ctx, owner, "p1", 2)
		require.ErrorIs(t, err, ErrCartNotFound)
	})

	t.Run("update to zero equals remove", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.AddItem(ctx, owner, "p1", 2, nil)
		require.NoError(t, err)

		cart, err := svc.UpdateItem(ctx, owner, "p1", 0)
		require.NoError(t, err)
		require.Empty(t, cart.Items)
	})

	t.Run("remove missing product fails", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
		require.NoError(t, err)
		_, err = svc.RemoveItem(ctx, owner, "p2")
		require.ErrorIs(t, err, domain.ErrItemNotFound)
	})
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()
	owner := domain.CartOwner{UserID: "u1"}
	svc, repo, _ := newTestCartService()

	first, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)

	cleared, err := svc.ClearCart(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, cleared.Items)
	require.Equal(t, domain.CartStatusAbandoned, cleared.Status)

	// The abandoned cart is not reactivated; the next access starts fresh.
	fresh, err := svc.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, fresh.ID)
	require.Empty(t, fresh.Items)
	require.Equal(t, domain.CartStatusActive, fresh.Status)

	require.Equal(t, domain.CartStatusAbandoned, repo.byID[first.ID].Status)
}

func TestMergeGuestCart(t *testing.T) {
	ctx := context.Background()
	guestOwner := domain.CartOwner{SessionID: "sess-1"}

	t.Run("nothing to merge returns nil", func(t *testing.T) {
		svc, _, _ := newTestCartService()
		merged, err := svc.MergeGuestCart(ctx, "sess-1", "u1")
		require.NoError(t, err)
		require.Nil(t, merged)

		// An empty guest cart is also nothing.
		_, err = svc.GetOrCreateCart(ctx, guestOwner)
		require.NoError(t, err)
		merged, err = svc.MergeGuestCart(ctx, "sess-1", "u1")
		require.NoError(t, err)
		require.Nil(t, merged)
	})

	t.Run("re-owns the guest cart when the user has none", func(t *testing.T) {
		svc, repo, _ := newTestCartService()
		guestCart, err := svc.AddItem(ctx, guestOwner, "p1", 2, nil)
		require.NoError(t, err)

		merged, err := svc.MergeGuestCart(ctx, "sess-1", "u1")
		require.NoError(t, err)
		require.NotNil(t, merged)
		require.Equal(t, guestCart.ID, merged.ID)
		require.Equal(t, "u1", merged.Owner.UserID)
		require.Empty(t, merged.Owner.SessionID)
		require.Len(t, merged.Items, 1)
		require.Equal(t, 2, merged.Items[0].Quantity)

		// The guest session no longer resolves to an active cart.
		stale, err := repo.FindActive(ctx, guestOwner)
		require.NoError(t, err)
		require.Nil(t, stale)
	})

	t.Run("replays guest lines into an existing user cart", func(t *testing.T) {
		svc, repo, _ := newTestCartService()
		userOwner := domain.CartOwner{UserID: "u1"}

		userCart, err := svc.AddItem(ctx, userOwner, "p1", 1, nil)
		require.NoError(t, err)
		guestCart, err := svc.AddItem(ctx, guestOwner, "p1", 2, nil)
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, guestOwner, "p2", 1, nil)
		require.NoError(t, err)

		merged, err := svc.MergeGuestCart(ctx, "sess-1", "u1")
		require.NoError(t, err)
		require.Equal(t, userCart.ID, merged.ID)
		require.Len(t, merged.Items, 2)
		require.Equal(t, 3, merged.Items[0].Quantity)
		require.Equal(t, domain.CartStatusConverted, repo.byID[guestCart.ID].Status)
	})
}

func TestCleanupExpiredCarts(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestCartService()
	now := time.Now()
	svc.now = func() time.Time { return now }

	expired := &domain.Cart{
		ID:        "expired",
		Owner:     domain.CartOwner{UserID: "u1"},
		Status:    domain.CartStatusActive,
		ExpiresAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
	staleAbandoned := &domain.Cart{
		ID:        "stale",
		Owner:     domain.CartOwner{SessionID: "s1"},
		Status:    domain.CartStatusAbandoned,
		ExpiresAt: now.Add(24 * time.Hour),
		UpdatedAt: now.Add(-8 * 24 * time.Hour),
	}
	fresh := &domain.Cart{
		ID:        "fresh",
		Owner:     domain.CartOwner{UserID: "u2"},
		Status:    domain.CartStatusActive,
		ExpiresAt: now.Add(24 * time.Hour),
		UpdatedAt: now,
	}
	for _, cart := range []*domain.Cart{expired, staleAbandoned, fresh} {
		require.NoError(t, repo.Save(ctx, cart))
	}

	removed, err := svc.CleanupExpiredCarts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Contains(t, repo.byID, "fresh")
	require.NotContains(t, repo.byID, "expired")
	require.NotContains(t, repo.byID, "stale")
}
