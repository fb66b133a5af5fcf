package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/readdigest/internal/db"
	"github.com/kailas-cloud/readdigest/internal/domain"
	domrec "github.com/kailas-cloud/readdigest/internal/domain/record"
)

const (
	idsKey       = domain.KeyPrefix + "records:ids"
	recordPrefix = domain.KeyPrefix + "record:"
)

// store is the consumer interface for records (ISP).
type store interface {
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo keeps records in Redis: one hash per record plus a set of fingerprints.
type Repo struct {
	store store
}

// New creates a Redis-backed record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// ExistingIDs returns every stored fingerprint.
func (r *Repo) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	members, err := r.store.SMembers(ctx, idsKey)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	ids := make(map[string]struct{}, len(members))
	for _, id := range members {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Append stores records whose fingerprint is not yet in the id set.
// SADD decides ownership, so a concurrent writer never overwrites a stored hash.
// Ids whose hashes could not be written are released again so a later run retries them.
func (r *Repo) Append(ctx context.Context, recs []domrec.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	var (
		claimed  []string
		items    = make([]db.HashSetItem, 0, len(recs))
		claimErr error
	)
	for _, rec := range recs {
		added, err := r.store.SAdd(ctx, idsKey, rec.UniqueID())
		if err != nil {
			claimErr = fmt.Errorf("claim id %s: %w", rec.UniqueID(), err)
			break
		}
		if added == 0 {
			continue
		}
		claimed = append(claimed, rec.UniqueID())
		items = append(items, db.HashSetItem{Key: recordPrefix + rec.UniqueID(), Fields: rec.Fields()})
	}

	if len(items) == 0 {
		return 0, claimErr
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		werr := fmt.Errorf("write records: %w", err)
		if _, rerr := r.store.SRem(ctx, idsKey, claimed...); rerr != nil {
			werr = errors.Join(werr, fmt.Errorf("release ids: %w", rerr))
		}
		return 0, errors.Join(claimErr, werr)
	}
	return len(items), claimErr
}

// Get loads a single record by fingerprint.
func (r *Repo) Get(ctx context.Context, id string) (domrec.Record, error) {
	fields, err := r.store.HGetAll(ctx, recordPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrec.Record{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		return domrec.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domrec.Record{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	return domrec.FromFields(fields), nil
}

// Locator has no human-facing link for Redis.
func (r *Repo) Locator() string { return "" }
