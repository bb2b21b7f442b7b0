package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/pkg/redis"
)

// DefaultTTL keeps abandoned carts around long enough to survive a lunch
// break but not a semester.
const DefaultTTL = 72 * time.Hour

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// Store persists carts as JSON blobs in Redis, one key per user.
type Store struct {
	kv  kvStore
	ttl time.Duration
}

// NewStore builds a cart store with the provided TTL (DefaultTTL when zero).
func NewStore(kv kvStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// Load returns the user's cart, or an empty one when none exists.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(userID.String()))
	if err != nil {
		if redis.IsNil(err) {
			return &Cart{UserID: userID, Lines: []CartLine{}}, nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	cart.UserID = userID
	return &cart, nil
}

// Save writes the cart back with a refreshed TTL.
func (s *Store) Save(ctx context.Context, cart *Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(cart.UserID.String()), string(raw), s.ttl); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// Clear drops the user's cart.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(userID.String())); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
