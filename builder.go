package campusAuth

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/attempt"
	internalaudit "github.com/MrEthical07/campusAuth/internal/audit"
	"github.com/MrEthical07/campusAuth/internal/flows"
	"github.com/MrEthical07/campusAuth/internal/rate"
	"github.com/MrEthical07/campusAuth/jwt"
	"github.com/MrEthical07/campusAuth/password"
	"github.com/MrEthical07/campusAuth/refresh"
	"github.com/MrEthical07/campusAuth/tenant"
)

// Builder assembles an [Engine]. A Builder can be used for one Build.
//
// Stores default to in-process implementations. WithRedis switches both the
// attempt tracker and the refresh store to Redis unless a store was given
// explicitly.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials  account.Lookup
	tenants      tenant.Lookup
	hasher       password.Hasher
	attemptStore attempt.Store
	tokenStore   refresh.Store

	auditSink      AuditSink
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	now            func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis shares one client between the attempt tracker and the refresh store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialLookup sets the account persistence collaborator. Required.
func (b *Builder) WithCredentialLookup(l account.Lookup) *Builder {
	b.credentials = l
	return b
}

// WithTenantLookup sets the tenant persistence collaborator. Required.
func (b *Builder) WithTenantLookup(l tenant.Lookup) *Builder {
	b.tenants = l
	return b
}

// WithPasswordHasher replaces the default Argon2id/bcrypt hasher.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAttemptStore(s attempt.Store) *Builder {
	b.attemptStore = s
	return b
}

func (b *Builder) WithTokenStore(s refresh.Store) *Builder {
	b.tokenStore = s
	return b
}

// WithAuditSink sets the audit destination. A non-nil sink enables the
// dispatcher regardless of Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time for attempts, token lifetimes and the store.
// Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.auditSink != nil {
		cfg.Audit.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential lookup required")
	}
	if b.tenants == nil {
		return nil, errors.New("tenant lookup required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := b.logger
	if logger == nil {
		lvl, _ := parseLevel(cfg.Logging.Level)
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	}

	// -------- ATTEMPT TRACKER --------
	attemptStore := b.attemptStore
	if attemptStore == nil && b.redis != nil {
		attemptStore = attempt.NewRedisStore(b.redis, cfg.Attempts.RedisPrefix)
	}
	tracker, err := attempt.New(attemptStore, attempt.Config{
		MaxAttempts: cfg.Attempts.MaxAttempts,
		Window:      cfg.Attempts.Window,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}

	// -------- REFRESH STORE --------
	tokens := b.tokenStore
	if tokens == nil {
		if b.redis != nil {
			tokens = refresh.NewRedisStore(b.redis, cfg.Refresh.RedisPrefix, cfg.Refresh.RevokedRetention)
		} else {
			tokens = refresh.NewMemoryStore(cfg.Refresh.RevokedRetention, now)
		}
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		KeyID:         cfg.JWT.KeyID,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher := b.hasher
	if hasher == nil {
		auto, err := password.NewAuto(password.Config{
			Memory:           cfg.Password.Memory,
			Time:             cfg.Password.Time,
			Parallelism:      cfg.Password.Parallelism,
			SaltLength:       cfg.Password.SaltLength,
			KeyLength:        cfg.Password.KeyLength,
			MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
		}, cfg.Password.BcryptCost)
		if err != nil {
			return nil, err
		}
		hasher = auto
	}

	// -------- OBSERVABILITY --------
	tp := b.tracerProvider
	switch {
	case !cfg.Tracing.Enabled:
		tp = noop.NewTracerProvider()
	case tp == nil:
		tp = otel.GetTracerProvider()
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		tracker:  tracker,
		resolver: tenant.NewResolver(b.tenants),
		accounts: b.credentials,
		codec:    codec,
		tokens:   tokens,
		hasher:   hasher,
		throttle: rate.New(rate.Config{
			PerSecond: cfg.Refresh.RateLimit,
			Burst:     cfg.Refresh.Burst,
			Now:       now,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		tracer:  tp.Tracer(tracerName),
		now:     now,
	}
	engine.flows = flows.New(engine.flowDeps())

	if cfg.Refresh.SweepInterval > 0 {
		engine.sweeper = startSweeper(cfg.Refresh.SweepInterval, engine.SweepRefreshTokens, logger)
	}

	b.built = true

	return engine, nil
}

// flowDeps binds the flow runners to the engine's components.
func (e *Engine) flowDeps() flows.Deps {
	warn := func(msg string, args ...any) { e.logger.Warn(msg, args...) }

	var throttle func(string) (time.Duration, error)
	if e.throttle != nil {
		throttle = e.throttle.Check
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			ReserveAttempt: e.tracker.Reserve,
			ReleaseAttempt: e.tracker.Release,
			ClearAttempts:  e.tracker.Clear,
			ResolveTenant:  e.resolver.ResolveActiveByEmail,
			FindCredential: e.accounts.FindByTenantAndEmail,
			PasswordMatch:  e.hasher.Matches,
			Issue:          e.issue,
			Warn:           warn,
		},
		Refresh: flows.RefreshDeps{
			Now:            e.now,
			ParseRefresh:   e.codec.ParseRefresh,
			Throttle:       throttle,
			Lookup:         e.tokens.Lookup,
			Revoke:         e.tokens.Revoke,
			RevokeAll:      e.tokens.RevokeAll,
			LoadAccount:    e.accounts.FindByID,
			LoadTenant:     e.resolver.Load,
			Issue:          e.issue,
			ReuseDetection: e.config.Refresh.ReuseDetection,
			Warn:           warn,
		},
		Logout: flows.LogoutDeps{
			ParseRefresh: e.codec.ParseRefresh,
			Revoke:       e.tokens.Revoke,
			RevokeAll:    e.tokens.RevokeAll,
		},
		Validate: flows.ValidateDeps{
			ParseAccess: e.codec.ParseAccess,
		},
	}
}
