package attempt

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

const (
	memoryShardCount = 64
	// evictEvery bounds how many writes a shard accepts between expiry scans.
	evictEvery = 128
)

type memoryEntry struct {
	stamps    []time.Time
	expiresAt time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	writes  int
}

// MemoryStore is the in-process [Store]. Keys are spread over fixed shards; each
// shard evicts its expired entries lazily while handling writes.
type MemoryStore struct {
	shards [memoryShardCount]memoryShard
	now    func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for entry expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]memoryEntry)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	return &s.shards[murmur3.Sum32([]byte(key))%memoryShardCount]
}

// live returns a copy of key's unexpired stamps later than cutoff. Callers
// hold sh.mu.
func (sh *memoryShard) live(key string, now, cutoff time.Time) []time.Time {
	e, ok := sh.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return nil
	}
	return slices.Clone(pruneBefore(e.stamps, cutoff))
}

// keepPruned writes back a pruned record without touching its expiry.
func (sh *memoryShard) keepPruned(key string, stamps []time.Time) {
	if len(stamps) == 0 {
		delete(sh.entries, key)
		return
	}
	if e, ok := sh.entries[key]; ok {
		e.stamps = stamps
		sh.entries[key] = e
	}
}

// store saves stamps under key and runs the periodic expiry scan. Callers
// hold sh.mu and hand over ownership of stamps.
func (sh *memoryShard) store(key string, stamps []time.Time, now time.Time, ttl time.Duration) {
	if len(stamps) == 0 || ttl <= 0 {
		delete(sh.entries, key)
		return
	}
	sh.entries[key] = memoryEntry{stamps: stamps, expiresAt: now.Add(ttl)}

	sh.writes++
	if sh.writes >= evictEvery {
		sh.writes = 0
		for k, e := range sh.entries {
			if !now.Before(e.expiresAt) {
				delete(sh.entries, k)
			}
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]time.Time, error) {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return nil, nil
	}
	if !now.Before(e.expiresAt) {
		delete(sh.entries, key)
		return nil, nil
	}
	return slices.Clone(e.stamps), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, stamps []time.Time, ttl time.Duration) error {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if len(stamps) == 0 || ttl <= 0 {
		delete(sh.entries, key)
		return nil
	}
	sh.store(key, slices.Clone(stamps), now, ttl)
	return nil
}

func (s *MemoryStore) Append(_ context.Context, key string, stamp, cutoff time.Time, keep int, ttl time.Duration) ([]time.Time, error) {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	stamps := append(sh.live(key, now, cutoff), stamp)
	if keep > 0 && len(stamps) > keep {
		stamps = stamps[len(stamps)-keep:]
	}
	sh.store(key, stamps, now, ttl)
	return slices.Clone(stamps), nil
}

func (s *MemoryStore) Reserve(_ context.Context, key string, stamp, cutoff time.Time, limit int, ttl time.Duration) ([]time.Time, bool, error) {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	stamps := sh.live(key, now, cutoff)
	if len(stamps) >= limit {
		sh.keepPruned(key, stamps)
		return slices.Clone(stamps), false, nil
	}
	stamps = append(stamps, stamp)
	sh.store(key, stamps, now, ttl)
	return slices.Clone(stamps), true, nil
}

func (s *MemoryStore) Prune(_ context.Context, key string, cutoff time.Time) ([]time.Time, error) {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	stamps := sh.live(key, now, cutoff)
	sh.keepPruned(key, stamps)
	return slices.Clone(stamps), nil
}

func (s *MemoryStore) Remove(_ context.Context, key string, stamp time.Time) error {
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return nil
	}
	i := slices.IndexFunc(e.stamps, stamp.Equal)
	if i < 0 {
		return nil
	}
	e.stamps = slices.Delete(slices.Clone(e.stamps), i, i+1)
	if len(e.stamps) == 0 {
		delete(sh.entries, key)
		return nil
	}
	sh.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return 0, nil
	}
	remaining := e.expiresAt.Sub(now)
	if remaining <= 0 {
		delete(sh.entries, key)
		return 0, nil
	}
	return remaining, nil
}

// Len returns the number of live entries. Expired entries not yet evicted are
// excluded from the count.
func (s *MemoryStore) Len() int {
	now := s.now()
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, e := range sh.entries {
			if now.Before(e.expiresAt) {
				n++
			}
		}
		sh.mu.Unlock()
	}
	return n
}

func (s *MemoryStore) rawLen() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
