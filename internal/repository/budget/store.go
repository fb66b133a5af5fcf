package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/readdigest/internal/db"
)

// DefaultTTL keeps a daily ledger key long enough to be read the next day.
const DefaultTTL = 48 * time.Hour

// store is the consumer interface for ledger operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store is the audit ledger of charged cost units (INCRBY + GET with TTL).
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a ledger store. ttl <= 0 selects DefaultTTL.
func New(s store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{store: s, ttl: ttl}
}

// IncrBy atomically increments the key and sets its TTL once.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("ledger INCRBY %s: %w", key, err)
	}
	// NX: repeated charges must not push the expiry forward.
	if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
		return fmt.Errorf("ledger EXPIRE %s: %w", key, err)
	}
	return nil
}

// Get returns the charged total for key, 0 if absent.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger GET %s parse: %w", key, err)
	}
	return val, nil
}
