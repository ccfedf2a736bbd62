package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/delivergaz-api/internal/config"
	"github.com/spec-kit/delivergaz-api/internal/domain"
	"github.com/spec-kit/delivergaz-api/internal/events"
	"github.com/spec-kit/delivergaz-api/internal/repository"
)

// Cart lookup errors surfaced by the service.
var (
	ErrCartNotFound       = errors.New("no active cart for owner")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
)

// CartService owns the shopping cart lifecycle: lazy creation, item
// mutations, guest-to-user merge and the expiry sweep. Mutations are
// serialized per owner key so concurrent requests for one cart cannot lose
// updates against the store.
type CartService struct {
	carts      repository.CartRepository
	products   repository.ProductRepository
	dispatcher events.Dispatcher
	cfg        config.CartConfig
	logger     *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// CartDependencies bundles collaborator requirements for the cart service.
type CartDependencies struct {
	CartRepo    repository.CartRepository
	ProductRepo repository.ProductRepository
	Dispatcher  events.Dispatcher
}

// NewCartService constructs the service.
func NewCartService(cfg config.CartConfig, deps CartDependencies, logger *zap.Logger) *CartService {
	return &CartService{
		carts:      deps.CartRepo,
		products:   deps.ProductRepo,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// GetOrCreateCart returns the owner's active cart, creating an empty one on
// first access.
func (s *CartService) GetOrCreateCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	unlock := s.lockOwner(owner)
	defer unlock()

	return s.getOrCreateLocked(ctx, owner)
}

func (s *CartService) getOrCreateLocked(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	cart, err := s.carts.FindActive(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	now := s.now()
	ttl := s.cfg.UserCartTTL()
	if owner.IsGuest() {
		ttl = s.cfg.GuestCartTTL()
	}

	cart = &domain.Cart{
		ID:        uuid.NewString(),
		Owner:     owner,
		Currency:  s.cfg.DefaultCurrency,
		Status:    domain.CartStatusActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem adds quantity of a product to the owner's cart, sourcing the unit
// price from the catalog. Unknown or out-of-stock products are rejected.
func (s *CartService) AddItem(ctx context.Context, owner domain.CartOwner, productID string, quantity int, options domain.SelectedOptions) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	quote, err := s.products.GetPriceAndAvailability(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !quote.Available {
		return nil, ErrProductUnavailable
	}

	unlock := s.lockOwner(owner)
	defer unlock()

	cart, err := s.getOrCreateLocked(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := cart.AddItem(productID, quantity, quote.Price, options, s.now()); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the quantity of the product's line; zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, owner domain.CartOwner, productID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, owner, func(cart *domain.Cart, now time.Time) error {
		return cart.UpdateItem(productID, quantity, now)
	})
}

// RemoveItem deletes every line for the product from the owner's cart.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.CartOwner, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, owner, func(cart *domain.Cart, now time.Time) error {
		return cart.RemoveItem(productID, now)
	})
}

// ClearCart empties the owner's cart and marks it abandoned. The next cart
// access for this owner starts a fresh one.
func (s *CartService) ClearCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, owner, func(cart *domain.Cart, now time.Time) error {
		cart.Clear(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCartCleared,
		Timestamp: s.now(),
		Payload:   events.CartClearedPayload{CartID: cart.ID},
	})
	return cart, nil
}

func (s *CartService) mutate(ctx context.Context, owner domain.CartOwner, fn func(*domain.Cart, time.Time) error) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	unlock := s.lockOwner(owner)
	defer unlock()

	cart, err := s.carts.FindActive(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	if err := fn(cart, s.now()); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// MergeGuestCart folds a guest session's cart into the user's on login. When
// the user has no active cart the guest cart is re-owned in place; otherwise
// its lines are replayed into the user cart and the guest cart is marked
// converted. Both carts are written in one store transaction. Returns nil
// when there is nothing to merge.
func (s *CartService) MergeGuestCart(ctx context.Context, guestSessionID, userID string) (*domain.Cart, error) {
	if guestSessionID == "" || userID == "" {
		return nil, domain.ErrInvalidOwnerKey
	}

	userOwner := domain.CartOwner{UserID: userID}
	guestOwner := domain.CartOwner{SessionID: guestSessionID}

	// Lock order is fixed (user before guest) so concurrent merges cannot
	// deadlock.
	unlockUser := s.lockOwner(userOwner)
	defer unlockUser()
	unlockGuest := s.lockOwner(guestOwner)
	defer unlockGuest()

	guestCart, err := s.carts.FindActive(ctx, guestOwner)
	if err != nil {
		return nil, err
	}
	if guestCart == nil || len(guestCart.Items) == 0 {
		return nil, nil
	}

	userCart, err := s.carts.FindActive(ctx, userOwner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reowned := userCart == nil
	var merged *domain.Cart

	if reowned {
		guestCart.Owner = userOwner
		guestCart.UpdatedAt = now
		if err := s.carts.Reown(ctx, guestCart, guestOwner); err != nil {
			return nil, err
		}
		merged = guestCart
	} else {
		for _, item := range guestCart.Items {
			if err := userCart.AddItem(item.ProductID, item.Quantity, item.UnitPrice, item.SelectedOptions, now); err != nil {
				return nil, err
			}
		}
		guestCart.Status = domain.CartStatusConverted
		guestCart.UpdatedAt = now
		if err := s.carts.SaveBoth(ctx, userCart, guestCart); err != nil {
			return nil, err
		}
		merged = userCart
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCartMerged,
		Timestamp: now,
		Payload: events.CartMergedPayload{
			UserID:         userID,
			GuestSessionID: guestSessionID,
			CartID:         merged.ID,
			ReOwned:        reowned,
		},
	})
	return merged, nil
}

// CleanupExpiredCarts removes expired carts and abandoned carts past the
// retention window. Returns the number removed.
func (s *CartService) CleanupExpiredCarts(ctx context.Context) (int, error) {
	now := s.now()
	removed, err := s.carts.DeleteStale(ctx, now, now.Add(-s.cfg.AbandonedRetention()))
	if err != nil {
		return removed, err
	}

	if removed > 0 {
		s.logger.Info("reaped stale carts", zap.Int("removed", removed))
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventCartsReaped,
			Timestamp: now,
			Payload:   events.CartsReapedPayload{Removed: removed},
		})
	}
	return removed, nil
}

// Summary derives checkout totals for the cart at the configured tax rate.
func (s *CartService) Summary(cart *domain.Cart) domain.CartSummary {
	return cart.Summary(s.cfg.TaxRate)
}

func (s *CartService) lockOwner(owner domain.CartOwner) func() {
	key := "user:" + owner.UserID
	if owner.IsGuest() {
		key = "guest:" + owner.SessionID
	}

	s.locksMu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}
