package cshauth

import (
	"errors"
	"time"
)

// PasswordConfig tunes the Argon2id hasher.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SessionConfig controls session issuance and lifetime.
//
// IdleTimeout is the sliding window refreshed on every validated
// command; MaxLifetime is the absolute bound measured from issuance
// (zero disables it). MaxSessionsPerUser caps concurrent sessions per
// user; hitting the cap fails the new login rather than evicting an old
// session.
type SessionConfig struct {
	RedisPrefix        string
	MaxSessionsPerUser int
	IdleTimeout        time.Duration
	MaxLifetime        time.Duration
	SlidingExpiration  bool

	// AllowCustomIdleTimeout permits LoginWithIdleTimeout to override
	// IdleTimeout per session. Overrides are clamped to MaxLifetime.
	AllowCustomIdleTimeout bool
}

// RateLimitConfig controls the per-session command budget and the
// failed-login throttle.
type RateLimitConfig struct {
	CommandLimit  int
	CommandWindow time.Duration

	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

// AuditConfig defines a public type used by cshauth APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by cshauth APIs.
type MetricsConfig struct {
	Enabled                bool
	EnableLatencyHistogram bool
}

// PolicyConfig holds behavior switches that are deliberate policy
// decisions rather than tuning.
type PolicyConfig struct {
	// RevokeSessionsOnPermissionChange forces re-authentication when a
	// user's permissions are edited. Off by default: edits take effect
	// on the session's next authorize without a forced logout.
	RevokeSessionsOnPermissionChange bool
}

// Config is the full engine configuration. Zero values are filled by
// defaultConfig; Validate runs at Builder.Build.
type Config struct {
	Password  PasswordConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Policy    PolicyConfig
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Session: SessionConfig{
			RedisPrefix:        "cs",
			MaxSessionsPerUser: 8,
			IdleTimeout:        30 * time.Minute,
			MaxLifetime:        24 * time.Hour,
			SlidingExpiration:  true,
		},
		RateLimit: RateLimitConfig{
			CommandLimit:     120,
			CommandWindow:    time.Minute,
			MaxLoginAttempts: 5,
			LoginCooldown:    5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when a section holds values the engine
// cannot operate with.
func (c *Config) Validate() error {
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session.IdleTimeout must be positive")
	}
	if c.Session.MaxLifetime < 0 {
		return errors.New("Session.MaxLifetime must not be negative")
	}
	if c.Session.MaxLifetime > 0 && c.Session.IdleTimeout > c.Session.MaxLifetime {
		return errors.New("Session.IdleTimeout must not exceed Session.MaxLifetime")
	}
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session.MaxSessionsPerUser must not be negative")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session.RedisPrefix must not be empty")
	}
	if c.RateLimit.CommandLimit < 0 {
		return errors.New("RateLimit.CommandLimit must not be negative")
	}
	if c.RateLimit.CommandLimit > 0 && c.RateLimit.CommandWindow <= 0 {
		return errors.New("RateLimit.CommandWindow must be positive when CommandLimit is set")
	}
	if c.RateLimit.EnableLoginThrottle {
		if c.RateLimit.MaxLoginAttempts <= 0 {
			return errors.New("RateLimit.MaxLoginAttempts must be positive when the login throttle is enabled")
		}
		if c.RateLimit.LoginCooldown <= 0 {
			return errors.New("RateLimit.LoginCooldown must be positive when the login throttle is enabled")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All sections are value types; a struct copy is a deep copy.
	return cfg
}
