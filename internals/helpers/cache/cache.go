// file: internals/helpers/cache/cache.go
package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Store keeps serialized query results by key; every entry carries tags so a
// mutation can drop all entries it made stale in one call.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration, tags ...string) error
	Invalidate(ctx context.Context, tags ...string) error
}

// Remember returns the cached value under key or computes, stores and returns it.
// Cache failures never fail the call.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, tags []string, fn func() (T, error)) (T, error) {
	if s != nil {
		if raw, ok, err := s.Get(ctx, key); err == nil && ok {
			var out T
			if err := sonic.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		} else if err != nil {
			log.Printf("[CACHE] get %s: %v", key, err)
		}
	}

	out, err := fn()
	if err != nil || s == nil {
		return out, err
	}
	if raw, mErr := sonic.Marshal(out); mErr == nil {
		if sErr := s.Set(ctx, key, raw, ttl, tags...); sErr != nil {
			log.Printf("[CACHE] set %s: %v", key, sErr)
		}
	}
	return out, nil
}

// Invalidate is the nil-safe form used by controllers after a successful mutation.
func Invalidate(ctx context.Context, s Store, tags ...string) {
	if s == nil || len(tags) == 0 {
		return
	}
	if err := s.Invalidate(ctx, tags...); err != nil {
		log.Printf("[CACHE] invalidate %v: %v", tags, err)
	}
}

/* ===============================
   In-memory store
=================================*/

type memEntry struct {
	val     []byte
	expires time.Time
	tags    []string
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	byTag   map[string]map[string]struct{}
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]memEntry{},
		byTag:   map[string]map[string]struct{}{},
		now:     time.Now,
	}
}

// WithClock swaps the time source; tests use it to expire entries.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.dropLocked(key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(key)
	e := memEntry{val: val, tags: tags}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	for _, t := range tags {
		set, ok := m.byTag[t]
		if !ok {
			set = map[string]struct{}{}
			m.byTag[t] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tags {
		for key := range m.byTag[t] {
			m.dropLocked(key)
		}
		delete(m.byTag, t)
	}
	return nil
}

// Len reports live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) dropLocked(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	for _, t := range e.tags {
		if set, ok := m.byTag[t]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.byTag, t)
			}
		}
	}
}
