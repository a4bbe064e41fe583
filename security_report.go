package campusAuth

import "time"

// SecurityReport is a read-only summary of the engine's effective security
// settings, suitable for startup logs and health endpoints.
type SecurityReport struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	MaxLoginAttempts      int
	AttemptWindow         time.Duration
	RefreshReuseDetection bool
	RefreshThrottle       bool
	RefreshSweepInterval  time.Duration
	Argon2                PasswordConfigReport
	AuditEnabled          bool
	MetricsEnabled        bool
	TracingEnabled        bool
}

// PasswordConfigReport contains the Argon2 parameters used for new hashes.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm:      e.config.JWT.SigningMethod,
		AccessTTL:             e.config.JWT.AccessTTL,
		RefreshTTL:            e.config.JWT.RefreshTTL,
		MaxLoginAttempts:      e.config.Attempts.MaxAttempts,
		AttemptWindow:         e.config.Attempts.Window,
		RefreshReuseDetection: e.config.Refresh.ReuseDetection,
		RefreshThrottle:       e.throttle != nil,
		RefreshSweepInterval:  e.config.Refresh.SweepInterval,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		AuditEnabled:   e.audit != nil,
		MetricsEnabled: e.metrics.Enabled(),
		TracingEnabled: e.config.Tracing.Enabled,
	}
}
