package attempt

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker(t *testing.T, clock *fakeClock) *Tracker {
	t.Helper()
	tr, err := New(nil, Config{MaxAttempts: 5, Window: time.Minute, Now: clock.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestBlocksAfterMaxAttemptsAndSlidesOpen(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	ctx := context.Background()
	const id = "bob@x.edu"

	for i := 0; i < 4; i++ {
		if err := tr.RecordFailure(ctx, id); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		clock.Advance(5 * time.Second)
	}
	if blocked, _ := tr.IsBlocked(ctx, id); blocked {
		t.Fatal("blocked before reaching the budget")
	}
	if err := tr.RecordFailure(ctx, id); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if blocked, _ := tr.IsBlocked(ctx, id); !blocked {
		t.Fatal("expected block after five failures")
	}

	// first failure was 20s before the last; it ages out 40s from now
	wait, err := tr.TimeUntilUnblocked(ctx, id)
	if err != nil {
		t.Fatalf("TimeUntilUnblocked: %v", err)
	}
	if wait != 40*time.Second {
		t.Fatalf("wait = %v, want 40s", wait)
	}

	clock.Advance(40 * time.Second)
	if blocked, _ := tr.IsBlocked(ctx, id); blocked {
		t.Fatal("block should lift once the oldest failure leaves the window")
	}
	if remaining, _ := tr.RemainingAttempts(ctx, id); remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}

	clock.Advance(time.Minute)
	if remaining, _ := tr.RemainingAttempts(ctx, id); remaining != 5 {
		t.Fatalf("remaining after full window = %d, want 5", remaining)
	}
}

func TestClearResetsBudget(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_ = tr.RecordFailure(ctx, "a@x.edu")
	}
	st, err := tr.Snapshot(ctx, "a@x.edu")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.Attempts != 5 || st.Remaining != 0 || !st.Blocked {
		t.Fatalf("unexpected snapshot %+v", st)
	}

	if err := tr.Clear(ctx, "a@x.edu"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if remaining, _ := tr.RemainingAttempts(ctx, "a@x.edu"); remaining != tr.MaxAttempts() {
		t.Fatalf("remaining after clear = %d", remaining)
	}
	if wait, _ := tr.TimeUntilUnblocked(ctx, "a@x.edu"); wait != 0 {
		t.Fatalf("wait after clear = %v", wait)
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = tr.RecordFailure(ctx, "mallory@x.edu")
	}
	if blocked, _ := tr.IsBlocked(ctx, "alice@x.edu"); blocked {
		t.Fatal("unrelated identifier must not be blocked")
	}
	if remaining, _ := tr.RemainingAttempts(ctx, "alice@x.edu"); remaining != 5 {
		t.Fatalf("remaining = %d", remaining)
	}
}

func TestConcurrentRecordFailureIsLinearizable(t *testing.T) {
	tr, err := New(nil, Config{MaxAttempts: 1000, Window: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	const workers = 16
	const perWorker = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = tr.RecordFailure(ctx, "shared@x.edu")
				_ = tr.RecordFailure(ctx, fmt.Sprintf("user-%d@x.edu", w))
			}
		}(w)
	}
	wg.Wait()

	st, err := tr.Snapshot(ctx, "shared@x.edu")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.Attempts != workers*perWorker {
		t.Fatalf("lost updates: attempts = %d, want %d", st.Attempts, workers*perWorker)
	}
	for w := 0; w < workers; w++ {
		st, _ := tr.Snapshot(ctx, fmt.Sprintf("user-%d@x.edu", w))
		if st.Attempts != perWorker {
			t.Fatalf("user-%d attempts = %d", w, st.Attempts)
		}
	}
}

func TestNewRejectsNegativeConfig(t *testing.T) {
	if _, err := New(nil, Config{MaxAttempts: -1}); err == nil {
		t.Fatal("expected error for negative MaxAttempts")
	}
	if _, err := New(nil, Config{Window: -time.Second}); err == nil {
		t.Fatal("expected error for negative Window")
	}
	tr, err := New(nil, Config{})
	if err != nil {
		t.Fatalf("New with defaults: %v", err)
	}
	if tr.MaxAttempts() != DefaultMaxAttempts || tr.Window() != DefaultWindow {
		t.Fatalf("defaults not applied: %d %v", tr.MaxAttempts(), tr.Window())
	}
}

func TestReserveCountsUpFrontAndRefusesWhenSpent(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	ctx := context.Background()
	const id = "frank@x.edu"

	for i := 1; i <= 5; i++ {
		r, st, err := tr.Reserve(ctx, id)
		if err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if st.Blocked || r.Identifier != id || st.Attempts != i {
			t.Fatalf("reserve %d: %+v %+v", i, r, st)
		}
		clock.Advance(time.Second)
	}

	r, st, err := tr.Reserve(ctx, id)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !st.Blocked || r.Identifier != "" {
		t.Fatalf("sixth reserve should be refused: %+v %+v", r, st)
	}
	if st.Wait != 55*time.Second {
		t.Fatalf("wait = %v, want 55s", st.Wait)
	}
	if snap, _ := tr.Snapshot(ctx, id); snap.Attempts != 5 {
		t.Fatalf("refused reserve was recorded: %+v", snap)
	}
}

func TestReleaseReturnsTheSlot(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = tr.RecordFailure(ctx, "gina@x.edu")
	}
	r, st, err := tr.Reserve(ctx, "gina@x.edu")
	if err != nil || st.Blocked {
		t.Fatalf("Reserve: %+v %v", st, err)
	}
	if blocked, _ := tr.IsBlocked(ctx, "gina@x.edu"); !blocked {
		t.Fatal("reservation should count toward the budget")
	}

	if err := tr.Release(ctx, r); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if remaining, _ := tr.RemainingAttempts(ctx, "gina@x.edu"); remaining != 1 {
		t.Fatalf("remaining after release = %d, want 1", remaining)
	}
	if err := tr.Release(ctx, Reservation{}); err != nil {
		t.Fatalf("zero reservation: %v", err)
	}
}

func TestConcurrentReserveAdmitsExactlyTheBudget(t *testing.T) {
	tr, err := New(nil, Config{MaxAttempts: 5, Window: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	var mu sync.Mutex
	admitted := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, st, err := tr.Reserve(ctx, "henry@x.edu")
			if err == nil && !st.Blocked {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 5 {
		t.Fatalf("admitted %d, want 5", admitted)
	}
}
