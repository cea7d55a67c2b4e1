package ledger

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store for tests and throwaway runs. Nothing
// survives a restart.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func memKey(ns, key string) string {
	return ns + "\x00" + key
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, ns, key string) (string, bool, error) {
	v, ok := m.c.Get(memKey(ns, key))
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%w: %s/%s is not text", ErrStore, ns, key)
	}
	return s, true, nil
}

// PutIfAbsent implements Store.
func (m *MemoryStore) PutIfAbsent(_ context.Context, ns, key, value string) (bool, error) {
	// Add fails when the key exists, which is exactly write-if-absent.
	return m.c.Add(memKey(ns, key), value, cache.NoExpiration) == nil, nil
}

// GetInt implements Store.
func (m *MemoryStore) GetInt(_ context.Context, ns, key string) (int64, bool, error) {
	v, ok := m.c.Get(memKey(ns, key))
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(int64)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s/%s is not an integer", ErrStore, ns, key)
	}
	return n, true, nil
}

// Increment implements Store.
func (m *MemoryStore) Increment(_ context.Context, ns, key string, delta int64) (int64, error) {
	k := memKey(ns, key)
	for {
		if n, err := m.c.IncrementInt64(k, delta); err == nil {
			return n, nil
		}
		if err := m.c.Add(k, delta, cache.NoExpiration); err == nil {
			return delta, nil
		}
		// Lost a race with another creator; retry the increment unless the
		// key holds something other than an integer.
		if v, ok := m.c.Get(k); ok {
			if _, isInt := v.(int64); !isInt {
				return 0, fmt.Errorf("%w: %s/%s is not an integer", ErrStore, ns, key)
			}
		}
	}
}

// SetInt implements Store.
func (m *MemoryStore) SetInt(_ context.Context, ns, key string, value int64) error {
	m.c.Set(memKey(ns, key), value, cache.NoExpiration)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.c.Flush()
	return nil
}
