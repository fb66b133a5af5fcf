package record

import (
	"context"
	"time"

	"github.com/kailas-cloud/readdigest/internal/db"
	domrec "github.com/kailas-cloud/readdigest/internal/domain/record"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	saddFn      func(ctx context.Context, key string, members ...string) (int64, error)
	sremFn      func(ctx context.Context, key string, members ...string) (int64, error)
	smembersFn  func(ctx context.Context, key string) ([]string, error)
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn   func(ctx context.Context, key string) (map[string]string, error)
}

func (m *mockStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if m.saddFn != nil {
		return m.saddFn(ctx, key, members...)
	}
	return int64(len(members)), nil
}

func (m *mockStore) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if m.sremFn != nil {
		return m.sremFn(ctx, key, members...)
	}
	return int64(len(members)), nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if m.smembersFn != nil {
		return m.smembersFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

// setStore is a minimal in-memory set used to exercise SADD semantics.
func setStore() (*mockStore, map[string]map[string]string) {
	ids := map[string]struct{}{}
	hashes := map[string]map[string]string{}
	return &mockStore{
		saddFn: func(_ context.Context, _ string, members ...string) (int64, error) {
			var n int64
			for _, m := range members {
				if _, ok := ids[m]; !ok {
					ids[m] = struct{}{}
					n++
				}
			}
			return n, nil
		},
		sremFn: func(_ context.Context, _ string, members ...string) (int64, error) {
			var n int64
			for _, m := range members {
				if _, ok := ids[m]; ok {
					delete(ids, m)
					n++
				}
			}
			return n, nil
		},
		smembersFn: func(_ context.Context, _ string) ([]string, error) {
			out := make([]string, 0, len(ids))
			for id := range ids {
				out = append(out, id)
			}
			return out, nil
		},
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			for _, it := range items {
				hashes[it.Key] = it.Fields
			}
			return nil
		},
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if h, ok := hashes[key]; ok {
				return h, nil
			}
			return map[string]string{}, nil
		},
	}, hashes
}

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func rec(content string) domrec.Record {
	return domrec.New("cat", "Extracted", content, "book", "anon", testNow)
}
