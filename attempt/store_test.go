package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestMemoryStoreExpiryAndLazyEviction(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	ctx := context.Background()

	stamp := []time.Time{clock.Now()}
	for i := 0; i < 4*evictEvery; i++ {
		if err := s.Put(ctx, fmt.Sprintf("stale-%d", i), stamp, time.Second); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if s.Len() != 4*evictEvery {
		t.Fatalf("Len = %d", s.Len())
	}

	clock.Advance(2 * time.Second)
	if s.Len() != 0 {
		t.Fatalf("expired entries still counted: %d", s.Len())
	}

	const fresh = memoryShardCount * evictEvery * 4
	for i := 0; i < fresh; i++ {
		_ = s.Put(ctx, fmt.Sprintf("fresh-%d", i), stamp, time.Hour)
	}
	if raw := s.rawLen(); raw != fresh {
		t.Fatalf("stale siblings not evicted, raw len = %d", raw)
	}
	for i := 0; i < 4*evictEvery; i++ {
		if got, _ := s.Get(ctx, fmt.Sprintf("stale-%d", i)); got != nil {
			t.Fatalf("stale-%d still readable", i)
		}
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	in := []time.Time{time.Unix(100, 0)}
	_ = s.Put(ctx, "k", in, time.Minute)
	in[0] = time.Unix(999, 0)

	got, _ := s.Get(ctx, "k")
	if !got[0].Equal(time.Unix(100, 0)) {
		t.Fatal("store aliased the caller's slice")
	}
	got[0] = time.Unix(5, 0)
	again, _ := s.Get(ctx, "k")
	if !again[0].Equal(time.Unix(100, 0)) {
		t.Fatal("store returned its internal slice")
	}
	if ttl, _ := s.TTL(ctx, "k"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	_ = s.Delete(ctx, "k")
	if ttl, _ := s.TTL(ctx, "k"); ttl != 0 {
		t.Fatalf("ttl after delete = %v", ttl)
	}
}

func TestRedisStoreRoundTripAndTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "")
	ctx := context.Background()

	stamps := []time.Time{time.Unix(0, 1700000000000000001), time.Unix(0, 1700000000500000000)}
	if err := s.Put(ctx, "bob@x.edu", stamps, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists("att:bob@x.edu") {
		t.Fatal("expected prefixed key in redis")
	}

	got, err := s.Get(ctx, "bob@x.edu")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(stamps[0]) || !got[1].Equal(stamps[1]) {
		t.Fatalf("round trip mismatch: %v", got)
	}

	ttl, err := s.TTL(ctx, "bob@x.edu")
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = %v, %v", ttl, err)
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := s.Get(ctx, "bob@x.edu"); got != nil {
		t.Fatalf("expected expiry, got %v", got)
	}
	if ttl, _ := s.TTL(ctx, "bob@x.edu"); ttl != 0 {
		t.Fatalf("TTL of missing key = %v", ttl)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "att")
	mr.Close()

	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestTrackerOverRedisStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := newFakeClock()
	tr, err := New(NewRedisStore(rdb, "att"), Config{MaxAttempts: 3, Window: time.Minute, Now: clock.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tr.RecordFailure(ctx, "carol@x.edu"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if blocked, err := tr.IsBlocked(ctx, "carol@x.edu"); err != nil || !blocked {
		t.Fatalf("IsBlocked = %v, %v", blocked, err)
	}
	if err := tr.Clear(ctx, "carol@x.edu"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if remaining, _ := tr.RemainingAttempts(ctx, "carol@x.edu"); remaining != 3 {
		t.Fatalf("remaining = %d", remaining)
	}
}

func TestDecodeRejectsCorruptMember(t *testing.T) {
	for _, m := range []string{"no-separator", "abc:uuid"} {
		if _, err := decodeMembers([]string{m}); err == nil {
			t.Fatalf("expected error for member %q", m)
		}
	}
}

// storeCases runs a test against both backends.
func storeCases(t *testing.T, clock *fakeClock) map[string]Store {
	t.Helper()
	_, rdb := newTestRedis(t)
	return map[string]Store{
		"memory": NewMemoryStore(WithMemoryClock(clock.Now)),
		"redis":  NewRedisStore(rdb, "att"),
	}
}

func TestStoreAppendPrunesAndTrims(t *testing.T) {
	clock := newFakeClock()
	for name, s := range storeCases(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := clock.Now()

			var got []time.Time
			var err error
			for i := 0; i < 5; i++ {
				at := base.Add(time.Duration(i) * time.Second)
				got, err = s.Append(ctx, "k", at, at.Add(-time.Minute), 3, time.Minute)
				if err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			if len(got) != 3 || !got[0].Equal(base.Add(2*time.Second)) || !got[2].Equal(base.Add(4*time.Second)) {
				t.Fatalf("expected newest three stamps, got %v", got)
			}

			pruned, err := s.Prune(ctx, "k", base.Add(3*time.Second))
			if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if len(pruned) != 1 || !pruned[0].Equal(base.Add(4*time.Second)) {
				t.Fatalf("Prune left %v", pruned)
			}
			if stored, _ := s.Get(ctx, "k"); len(stored) != 1 {
				t.Fatalf("Prune not persisted: %v", stored)
			}
		})
	}
}

func TestStoreReserveRespectsLimit(t *testing.T) {
	clock := newFakeClock()
	for name, s := range storeCases(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := clock.Now()
			cutoff := now.Add(-time.Minute)

			for i := 0; i < 2; i++ {
				got, ok, err := s.Reserve(ctx, "k", now, cutoff, 2, time.Minute)
				if err != nil || !ok || len(got) != i+1 {
					t.Fatalf("reserve %d: ok=%v len=%d err=%v", i, ok, len(got), err)
				}
			}
			got, ok, err := s.Reserve(ctx, "k", now, cutoff, 2, time.Minute)
			if err != nil || ok || len(got) != 2 {
				t.Fatalf("reserve over limit: ok=%v len=%d err=%v", ok, len(got), err)
			}

			if err := s.Remove(ctx, "k", now); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if stored, _ := s.Get(ctx, "k"); len(stored) != 1 {
				t.Fatalf("Remove should drop exactly one stamp, left %v", stored)
			}
			if err := s.Remove(ctx, "k", now.Add(time.Hour)); err != nil {
				t.Fatalf("Remove of missing stamp: %v", err)
			}
			if _, ok, _ := s.Reserve(ctx, "k", now, cutoff, 2, time.Minute); !ok {
				t.Fatal("released slot should be reusable")
			}
		})
	}
}

// Two trackers over one Redis behave like two replicas of the service.
func TestRedisTrackersShareCountsUnderConcurrency(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := newFakeClock()
	cfg := Config{MaxAttempts: 1000, Window: time.Minute, Now: clock.Now}

	var replicas []*Tracker
	for i := 0; i < 2; i++ {
		tr, err := New(NewRedisStore(rdb, "att"), cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		replicas = append(replicas, tr)
	}
	ctx := context.Background()

	const perReplica = 20
	var wg sync.WaitGroup
	for _, tr := range replicas {
		for i := 0; i < perReplica; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := tr.RecordFailure(ctx, "dave@x.edu"); err != nil {
					t.Errorf("RecordFailure: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	st, err := replicas[0].Snapshot(ctx, "dave@x.edu")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.Attempts != 2*perReplica {
		t.Fatalf("lost updates across replicas: attempts = %d, want %d", st.Attempts, 2*perReplica)
	}
}

func TestRedisTrackersReserveNeverOverAdmits(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := newFakeClock()
	cfg := Config{MaxAttempts: 5, Window: time.Minute, Now: clock.Now}

	var replicas []*Tracker
	for i := 0; i < 2; i++ {
		tr, err := New(NewRedisStore(rdb, "att"), cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		replicas = append(replicas, tr)
	}
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(tr *Tracker) {
			defer wg.Done()
			_, st, err := tr.Reserve(ctx, "erin@x.edu")
			if err != nil {
				t.Errorf("Reserve: %v", err)
				return
			}
			if !st.Blocked {
				admitted.Add(1)
			}
		}(replicas[i%2])
	}
	wg.Wait()

	if got := admitted.Load(); got != 5 {
		t.Fatalf("admitted %d attempts, want 5", got)
	}
}
