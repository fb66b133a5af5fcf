package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/readdigest/internal/domain"
	domrec "github.com/kailas-cloud/readdigest/internal/domain/record"
)

// Repo is a process-local record store for dry runs and tests.
type Repo struct {
	mu    sync.RWMutex
	byID  map[string]domrec.Record
	order []string
}

// New creates an empty in-memory repository.
func New() *Repo {
	return &Repo{byID: make(map[string]domrec.Record)}
}

// ExistingIDs returns a copy of the stored fingerprints.
func (r *Repo) ExistingIDs(_ context.Context) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{}, len(r.byID))
	for id := range r.byID {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Append stores records with unseen fingerprints and reports how many were added.
func (r *Repo) Append(_ context.Context, recs []domrec.Record) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, rec := range recs {
		if _, ok := r.byID[rec.UniqueID()]; ok {
			continue
		}
		r.byID[rec.UniqueID()] = rec
		r.order = append(r.order, rec.UniqueID())
		added++
	}
	return added, nil
}

// Get returns the record with fingerprint id.
func (r *Repo) Get(_ context.Context, id string) (domrec.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return domrec.Record{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// Records returns stored records in insertion order.
func (r *Repo) Records() []domrec.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domrec.Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Locator has no link for an in-memory store.
func (r *Repo) Locator() string { return "" }
