package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStateTTL bounds the lifetime of one login attempt.
const DefaultStateTTL = 10 * time.Minute

const statePrefix = "oauth_state:"

// StateStore issues and consumes single-use CSRF state tokens, one slot per
// owning account. Slots live in Redis with a TTL so they cover exactly one
// login attempt and do not survive indefinitely.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore creates a Redis-backed state store with the default TTL.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client, ttl: DefaultStateTTL}
}

// NewStateStoreWithTTL creates a state store with a custom TTL.
func NewStateStoreWithTTL(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

// Issue generates a fresh state token for the owner and stores it,
// overwriting any pending attempt. A second connect invalidates the first.
func (s *StateStore) Issue(ctx context.Context, ownerID int64) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	if err := s.client.Set(ctx, stateKey(ownerID), state, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Consume atomically removes the owner's pending state and reports whether it
// equals the received value. A missing slot is a rejection, never an implicit
// pass, and the slot is cleared whether or not the values match.
func (s *StateStore) Consume(ctx context.Context, ownerID int64, received string) (bool, error) {
	stored, err := s.client.GetDel(ctx, stateKey(ownerID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}
	return received != "" && stored == received, nil
}

// Clear drops any lingering pending attempt for the owner.
func (s *StateStore) Clear(ctx context.Context, ownerID int64) error {
	if err := s.client.Del(ctx, stateKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

func stateKey(ownerID int64) string {
	return statePrefix + strconv.FormatInt(ownerID, 10)
}
