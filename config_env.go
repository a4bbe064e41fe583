package campusAuth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable read by ConfigFromEnv.
const EnvPrefix = "CAMPUSAUTH_"

// EnvConfig is the flat environment view of Config plus the backend
// locations that hosts need to construct stores.
type EnvConfig struct {
	MaxLoginAttempts      int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	AttemptWindowMinutes  int           `env:"ATTEMPT_WINDOW_MINUTES" envDefault:"1"`
	AccessTokenTTLMillis  int64         `env:"ACCESS_TOKEN_TTL_MS" envDefault:"900000"`
	RefreshTokenTTLMillis int64         `env:"REFRESH_TOKEN_TTL_MS" envDefault:"604800000"`
	SigningSecret         string        `env:"SIGNING_SECRET,required,unset"`
	SigningMethod         string        `env:"SIGNING_METHOD" envDefault:"hs256"`
	PublicKey             string        `env:"PUBLIC_KEY,unset"`
	Issuer                string        `env:"ISSUER"`
	Audience              string        `env:"AUDIENCE"`
	ReuseDetection        bool          `env:"REUSE_DETECTION" envDefault:"true"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL" envDefault:"0s"`
	RefreshRateLimit      float64       `env:"REFRESH_RATE_LIMIT" envDefault:"0"`
	RefreshBurst          int           `env:"REFRESH_BURST" envDefault:"0"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	AuditEnabled          bool          `env:"AUDIT_ENABLED" envDefault:"false"`
	RedisAddr             string        `env:"REDIS_ADDR"`
	SQLitePath            string        `env:"SQLITE_PATH"`
}

// LoadEnv parses the CAMPUSAUTH_ environment.
func LoadEnv() (EnvConfig, error) {
	return loadEnv(env.Options{Prefix: EnvPrefix})
}

func loadEnv(opts env.Options) (EnvConfig, error) {
	var ec EnvConfig
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return ec, nil
}

// ConfigFromEnv returns DefaultConfig overlaid with the CAMPUSAUTH_
// environment. The result is validated.
func ConfigFromEnv() (Config, error) {
	ec, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	return ec.Config()
}

// Config converts the environment view into an engine Config.
func (ec EnvConfig) Config() (Config, error) {
	cfg := DefaultConfig()
	cfg.Attempts.MaxAttempts = ec.MaxLoginAttempts
	cfg.Attempts.Window = time.Duration(ec.AttemptWindowMinutes) * time.Minute
	cfg.JWT.AccessTTL = time.Duration(ec.AccessTokenTTLMillis) * time.Millisecond
	cfg.JWT.RefreshTTL = time.Duration(ec.RefreshTokenTTLMillis) * time.Millisecond
	cfg.JWT.SigningMethod = ec.SigningMethod
	cfg.JWT.PrivateKey = []byte(ec.SigningSecret)
	if ec.PublicKey != "" {
		cfg.JWT.PublicKey = []byte(ec.PublicKey)
	}
	cfg.JWT.Issuer = ec.Issuer
	cfg.JWT.Audience = ec.Audience
	cfg.Refresh.ReuseDetection = ec.ReuseDetection
	cfg.Refresh.SweepInterval = ec.SweepInterval
	cfg.Refresh.RateLimit = ec.RefreshRateLimit
	cfg.Refresh.Burst = ec.RefreshBurst
	cfg.Logging.Level = ec.LogLevel
	cfg.Audit.Enabled = ec.AuditEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
