package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/delivergaz-api/internal/domain"
)

// CartRepository persists cart documents. Carts are stored as JSON values
// keyed by cart id, with a per-owner pointer to the owner's active cart.
// Document keys expire with the cart so the store reaps on its own; the
// sweep in DeleteStale covers abandoned carts that are not yet expired.
type CartRepository interface {
	// FindActive returns the owner's active cart, or nil when none exists.
	FindActive(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	// SaveBoth writes two carts in one transaction, used by the guest merge
	// so both sides land or neither does.
	SaveBoth(ctx context.Context, first, second *domain.Cart) error
	// Reown persists a cart under its new owner and releases the previous
	// owner's pointer in the same transaction.
	Reown(ctx context.Context, cart *domain.Cart, previous domain.CartOwner) error
	Delete(ctx context.Context, cart *domain.Cart) error
	// DeleteStale removes carts that expired before now, or were abandoned
	// and untouched since abandonedBefore. Returns the number removed.
	DeleteStale(ctx context.Context, now, abandonedBefore time.Time) (int, error)
}

const (
	cartDocPrefix    = "cart:doc:"
	cartActivePrefix = "cart:active:"
)

type cartRepository struct {
	client *redis.Client
}

// NewCartRepository returns a Redis-backed implementation.
func NewCartRepository(client *redis.Client) CartRepository {
	return &cartRepository{client: client}
}

func cartDocKey(id string) string {
	return cartDocPrefix + id
}

func ownerKey(owner domain.CartOwner) string {
	if owner.UserID != "" {
		return cartActivePrefix + "user:" + owner.UserID
	}
	return cartActivePrefix + "guest:" + owner.SessionID
}

func (r *cartRepository) FindActive(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cartID, err := r.client.Get(ctx, ownerKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, cartDocKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Pointer outlived its document; drop it.
		_ = r.client.Del(ctx, ownerKey(owner)).Err()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", cartID, err)
	}
	if cart.Status != domain.CartStatusActive {
		return nil, nil
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	pipe := r.client.TxPipeline()
	if err := r.enqueueSave(ctx, pipe, cart); err != nil {
		return err
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *cartRepository) SaveBoth(ctx context.Context, first, second *domain.Cart) error {
	pipe := r.client.TxPipeline()
	if err := r.enqueueSave(ctx, pipe, first); err != nil {
		return err
	}
	if err := r.enqueueSave(ctx, pipe, second); err != nil {
		return err
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *cartRepository) Reown(ctx context.Context, cart *domain.Cart, previous domain.CartOwner) error {
	pipe := r.client.TxPipeline()
	if err := r.enqueueSave(ctx, pipe, cart); err != nil {
		return err
	}

	prevKey := ownerKey(previous)
	current, err := r.client.Get(ctx, prevKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if current == cart.ID {
		pipe.Del(ctx, prevKey)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (r *cartRepository) enqueueSave(ctx context.Context, pipe redis.Pipeliner, cart *domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	pipe.Set(ctx, cartDocKey(cart.ID), raw, 0)
	if !cart.ExpiresAt.IsZero() {
		pipe.ExpireAt(ctx, cartDocKey(cart.ID), cart.ExpiresAt)
	}

	key := ownerKey(cart.Owner)
	if cart.Status == domain.CartStatusActive {
		pipe.Set(ctx, key, cart.ID, 0)
		if !cart.ExpiresAt.IsZero() {
			pipe.ExpireAt(ctx, key, cart.ExpiresAt)
		}
		return nil
	}

	// Cart left the active state: release the owner pointer unless another
	// cart already claimed it.
	current, err := r.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if current == cart.ID {
		pipe.Del(ctx, key)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, cart *domain.Cart) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, cartDocKey(cart.ID))

	key := ownerKey(cart.Owner)
	current, err := r.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if current == cart.ID {
		pipe.Del(ctx, key)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (r *cartRepository) DeleteStale(ctx context.Context, now, abandonedBefore time.Time) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, cartDocPrefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, err
		}

		var cart domain.Cart
		if err := json.Unmarshal(raw, &cart); err != nil {
			// Unreadable document: reap it rather than keep it forever.
			if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
				return removed, delErr
			}
			removed++
			continue
		}

		stale := cart.IsExpired(now) ||
			(cart.Status == domain.CartStatusAbandoned && cart.UpdatedAt.Before(abandonedBefore))
		if !stale {
			continue
		}

		if err := r.Delete(ctx, &cart); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
