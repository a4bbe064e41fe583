package attempt

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultMaxAttempts is the failure budget per window.
	DefaultMaxAttempts = 5
	// DefaultWindow is the sliding window length.
	DefaultWindow = time.Minute
)

// Config tunes a Tracker. Zero fields take the package defaults.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Now         func() time.Time
}

// Status is a consistent view of one identifier's record.
type Status struct {
	Attempts  int
	Remaining int
	Blocked   bool
	// Wait is zero unless Blocked.
	Wait time.Duration
}

// Tracker counts failed attempts per identifier over a sliding window. Every
// read-modify-write runs inside the Store, so trackers in different processes
// sharing one Store never lose each other's updates.
type Tracker struct {
	store  Store
	max    int
	window time.Duration
	now    func() time.Time
}

// New builds a tracker over store. A nil store selects a fresh MemoryStore.
func New(store Store, cfg Config) (*Tracker, error) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxAttempts < 0 {
		return nil, errors.New("attempt: MaxAttempts must be > 0")
	}
	if cfg.Window < 0 {
		return nil, errors.New("attempt: Window must be > 0")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if store == nil {
		store = NewMemoryStore(WithMemoryClock(cfg.Now))
	}
	return &Tracker{
		store:  store,
		max:    cfg.MaxAttempts,
		window: cfg.Window,
		now:    cfg.Now,
	}, nil
}

// MaxAttempts returns the configured failure budget.
func (t *Tracker) MaxAttempts() int { return t.max }

// Window returns the configured sliding window.
func (t *Tracker) Window() time.Duration { return t.window }

// RecordFailure appends the current time to identifier's record, creating it
// when absent. Only the newest MaxAttempts stamps are kept.
func (t *Tracker) RecordFailure(ctx context.Context, identifier string) error {
	now := t.now()
	_, err := t.store.Append(ctx, identifier, now, now.Add(-t.window), t.max, t.window)
	return err
}

// Reservation is an attempt counted before its outcome is known.
type Reservation struct {
	Identifier string
	At         time.Time
}

// Reserve counts an attempt for identifier unless the budget is already
// spent, in one atomic step. A refused attempt is not recorded and the
// returned Status is Blocked with the wait until a slot frees. An admitted
// attempt returns the record including itself and Blocked false.
func (t *Tracker) Reserve(ctx context.Context, identifier string) (Reservation, Status, error) {
	now := t.now()
	stamps, ok, err := t.store.Reserve(ctx, identifier, now, now.Add(-t.window), t.max, t.window)
	if err != nil {
		return Reservation{}, Status{}, err
	}
	st := t.status(pruneBefore(stamps, now.Add(-t.window)), now)
	if !ok {
		st.Blocked = true
		return Reservation{}, st, nil
	}
	st.Blocked, st.Wait = false, 0
	return Reservation{Identifier: identifier, At: now}, st, nil
}

// Release takes back a reserved attempt whose outcome should not count, such
// as a backend outage. Releasing a zero Reservation is a no-op.
func (t *Tracker) Release(ctx context.Context, r Reservation) error {
	if r.Identifier == "" {
		return nil
	}
	return t.store.Remove(ctx, r.Identifier, r.At)
}

// IsBlocked reports whether identifier has exhausted its budget within the window.
func (t *Tracker) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	st, err := t.Snapshot(ctx, identifier)
	if err != nil {
		return false, err
	}
	return st.Blocked, nil
}

// RemainingAttempts returns how many more failures identifier may accumulate
// before it is blocked.
func (t *Tracker) RemainingAttempts(ctx context.Context, identifier string) (int, error) {
	st, err := t.Snapshot(ctx, identifier)
	if err != nil {
		return 0, err
	}
	return st.Remaining, nil
}

// TimeUntilUnblocked returns how long identifier stays blocked, zero when it is
// not blocked.
func (t *Tracker) TimeUntilUnblocked(ctx context.Context, identifier string) (time.Duration, error) {
	st, err := t.Snapshot(ctx, identifier)
	if err != nil {
		return 0, err
	}
	return st.Wait, nil
}

// Clear removes identifier's record.
func (t *Tracker) Clear(ctx context.Context, identifier string) error {
	return t.store.Delete(ctx, identifier)
}

// Snapshot prunes identifier's record and reports attempts, remaining budget,
// block state and wait from a single read of the pruned record.
func (t *Tracker) Snapshot(ctx context.Context, identifier string) (Status, error) {
	now := t.now()
	cutoff := now.Add(-t.window)
	stamps, err := t.store.Prune(ctx, identifier, cutoff)
	if err != nil {
		return Status{}, err
	}
	return t.status(pruneBefore(stamps, cutoff), now), nil
}

func (t *Tracker) status(stamps []time.Time, now time.Time) Status {
	st := Status{
		Attempts:  len(stamps),
		Remaining: max(t.max-len(stamps), 0),
	}
	if len(stamps) >= t.max {
		// the stamp whose expiry brings the count back under the limit
		oldest := stamps[len(stamps)-t.max]
		st.Blocked = true
		st.Wait = max(oldest.Add(t.window).Sub(now), 0)
	}
	return st
}
