package rate

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by Check when the key's bucket is empty.
var ErrRateLimited = errors.New("rate limited")

const (
	defaultIdle    = 10 * time.Minute
	defaultSoftCap = 4096
)

// Config tunes a Throttle. A non-positive PerSecond disables throttling.
type Config struct {
	PerSecond float64
	Burst     int
	// Idle is how long an unused limiter is kept. Zero selects 10 minutes.
	Idle time.Duration
	// SoftCap is the registry size above which idle limiters are evicted.
	SoftCap int
	Now     func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a registry of per-key token buckets.
type Throttle struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	softCap int
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a Throttle, or nil when cfg disables throttling. A nil
// *Throttle allows everything.
func New(cfg Config) *Throttle {
	if cfg.PerSecond <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.PerSecond)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.Idle <= 0 {
		cfg.Idle = defaultIdle
	}
	if cfg.SoftCap <= 0 {
		cfg.SoftCap = defaultSoftCap
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Throttle{
		limit:   rate.Limit(cfg.PerSecond),
		burst:   cfg.Burst,
		idle:    cfg.Idle,
		softCap: cfg.SoftCap,
		now:     cfg.Now,
		entries: make(map[string]*entry),
	}
}

// Check consumes one token for key. When the bucket is empty it returns
// ErrRateLimited and the delay until the next token.
func (t *Throttle) Check(key string) (time.Duration, error) {
	if t == nil {
		return 0, nil
	}
	now := t.now()
	lim := t.limiterFor(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 0, ErrRateLimited
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d, ErrRateLimited
	}
	return 0, nil
}

// Forget drops the limiter of key.
func (t *Throttle) Forget(key string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Len returns the number of tracked keys.
func (t *Throttle) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Throttle) limiterFor(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	if len(t.entries) >= t.softCap {
		t.evictIdleLocked(now)
	}
	e := &entry{limiter: rate.NewLimiter(t.limit, t.burst), lastSeen: now}
	t.entries[key] = e
	return e.limiter
}

func (t *Throttle) evictIdleLocked(now time.Time) {
	cutoff := now.Add(-t.idle)
	for k, e := range t.entries {
		if e.lastSeen.Before(cutoff) {
			delete(t.entries, k)
		}
	}
}
