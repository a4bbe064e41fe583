package refresh

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

type storeFactory func(t *testing.T) Store

func newTestRedisStore(t *testing.T) Store {
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
	return NewRedisStore(rdb, "rt", 0)
}

func newTestMemoryStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore(0, nil)
}

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": newTestMemoryStore,
		"redis":  newTestRedisStore,
	}
}

func TestStoreSaveNeverResetsRevoked(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			if err := s.Save(ctx, "token-r", "42", exp); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if ok, err := s.Revoke(ctx, "token-r"); err != nil || !ok {
				t.Fatalf("Revoke = %v, %v", ok, err)
			}

			if err := s.Save(ctx, "token-r", "99", exp.Add(time.Hour)); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			rec, err := s.Lookup(ctx, "token-r")
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if !rec.Revoked || rec.AccountID != "42" {
				t.Fatalf("second save changed the record: %+v", rec)
			}
			if valid, _ := s.IsValid(ctx, "token-r"); valid {
				t.Fatal("revoked token came back to life")
			}
		})
	}
}

func TestStoreSaveFindRevoke(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			if err := s.Save(ctx, "token-a", "42", exp); err != nil {
				t.Fatalf("Save: %v", err)
			}
			owner, ok, err := s.FindOwner(ctx, "token-a")
			if err != nil || !ok || owner != "42" {
				t.Fatalf("FindOwner = %q, %v, %v", owner, ok, err)
			}
			if valid, _ := s.IsValid(ctx, "token-a"); !valid {
				t.Fatal("fresh token must be valid")
			}

			rec, err := s.Lookup(ctx, "token-a")
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if rec.TokenHash != HashToken("token-a") || rec.Revoked || rec.ExpiresAt.UnixMilli() != exp.UnixMilli() {
				t.Fatalf("unexpected record %+v", rec)
			}

			revoked, err := s.Revoke(ctx, "token-a")
			if err != nil || !revoked {
				t.Fatalf("first Revoke = %v, %v", revoked, err)
			}
			revoked, err = s.Revoke(ctx, "token-a")
			if err != nil || revoked {
				t.Fatalf("second Revoke = %v, %v", revoked, err)
			}
			if _, ok, _ := s.FindOwner(ctx, "token-a"); ok {
				t.Fatal("revoked token must have no owner")
			}

			rec, err = s.Lookup(ctx, "token-a")
			if err != nil || !rec.Revoked || rec.RevokedAt.IsZero() {
				t.Fatalf("revoked record should stay visible: %+v, %v", rec, err)
			}

			if _, err := s.Lookup(ctx, "never-issued"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if revoked, _ := s.Revoke(ctx, "never-issued"); revoked {
				t.Fatal("revoke of unknown token reported success")
			}
		})
	}
}

func TestStoreExpiredTokenIsInvalid(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			// redis drops keys with a past PEXPIREAT immediately; memory keeps the record
			if err := s.Save(ctx, "old", "7", time.Now().Add(-time.Second)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if valid, _ := s.IsValid(ctx, "old"); valid {
				t.Fatal("expired token must not be valid")
			}
			if _, ok, _ := s.FindOwner(ctx, "old"); ok {
				t.Fatal("expired token must have no owner")
			}
			if revoked, _ := s.Revoke(ctx, "old"); revoked {
				t.Fatal("expired token cannot be revoked into use")
			}
		})
	}
}

func TestStoreRevokeAll(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			for i := 0; i < 3; i++ {
				_ = s.Save(ctx, fmt.Sprintf("alice-%d", i), "alice", exp)
			}
			_ = s.Save(ctx, "bob-0", "bob", exp)
			_, _ = s.Revoke(ctx, "alice-0")

			n, err := s.RevokeAll(ctx, "alice")
			if err != nil {
				t.Fatalf("RevokeAll: %v", err)
			}
			if n != 2 {
				t.Fatalf("RevokeAll revoked %d, want 2", n)
			}
			for i := 0; i < 3; i++ {
				if valid, _ := s.IsValid(ctx, fmt.Sprintf("alice-%d", i)); valid {
					t.Fatalf("alice-%d still valid", i)
				}
			}
			if valid, _ := s.IsValid(ctx, "bob-0"); !valid {
				t.Fatal("RevokeAll touched another account")
			}
			if n, _ := s.RevokeAll(ctx, "nobody"); n != 0 {
				t.Fatalf("RevokeAll on unknown account = %d", n)
			}
		})
	}
}

func TestStoreConcurrentRevokeSingleWinner(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			_ = s.Save(ctx, "contested", "42", time.Now().Add(time.Hour))

			const n = 16
			var wins atomic.Int32
			var wg sync.WaitGroup
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					ok, err := s.Revoke(ctx, "contested")
					if err != nil {
						t.Errorf("Revoke: %v", err)
						return
					}
					if ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			if wins.Load() != 1 {
				t.Fatalf("expected exactly one winning revoke, got %d", wins.Load())
			}
		})
	}
}

func TestStoreSweep(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			_ = s.Save(ctx, "keep", "1", exp)
			_ = s.Save(ctx, "drop", "1", exp)
			_, _ = s.Revoke(ctx, "drop")

			n, err := s.Sweep(ctx, time.Now().Add(time.Second))
			if err != nil {
				t.Fatalf("Sweep: %v", err)
			}
			if n != 1 {
				t.Fatalf("Sweep removed %d, want 1", n)
			}
			if _, err := s.Lookup(ctx, "drop"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("revoked record survived sweep: %v", err)
			}
			if valid, _ := s.IsValid(ctx, "keep"); !valid {
				t.Fatal("sweep removed a live token")
			}
		})
	}
}

func TestMemoryStoreSweepHonorsRetentionAndExpiry(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewMemoryStore(time.Hour, clock)
	ctx := context.Background()

	_ = s.Save(ctx, "expired", "1", now.Add(time.Minute))
	_ = s.Save(ctx, "revoked", "1", now.Add(48*time.Hour))
	_, _ = s.Revoke(ctx, "revoked")

	if n, _ := s.Sweep(ctx, now.Add(30*time.Minute)); n != 1 {
		t.Fatalf("sweep inside retention removed %d, want 1 (expired only)", n)
	}
	if _, err := s.Lookup(ctx, "revoked"); err != nil {
		t.Fatalf("revoked record dropped inside retention: %v", err)
	}
	if n, _ := s.Sweep(ctx, now.Add(2*time.Hour)); n != 1 {
		t.Fatalf("sweep after retention removed %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after sweeps", s.Len())
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s := NewRedisStore(rdb, "rt", 0)
	mr.Close()

	if err := s.Save(context.Background(), "t", "1", time.Now().Add(time.Hour)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.Revoke(context.Background(), "t"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
