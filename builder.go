package cshauth

import (
	"errors"

	"github.com/cubeflix/cshauth/internal/audit"
	"github.com/cubeflix/cshauth/internal/rate"
	"github.com/cubeflix/cshauth/password"
	"github.com/cubeflix/cshauth/session"
	"github.com/cubeflix/cshauth/userstore"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it during initialization and
// call Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     *userstore.Store
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore describes the withuserstore operation and its observable behavior.
func (b *Builder) WithUserStore(store *userstore.Store) *Builder {
	b.users = store
	return b
}

// WithAuditSink enables the audit trail and routes events to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistogram describes the withlatencyhistogram operation and its observable behavior.
func (b *Builder) WithLatencyHistogram(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistogram = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when the configuration fails validation or a
// required dependency is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		users:        b.users,
		passwordHash: ph,
		sessionStore: session.NewStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.SlidingExpiration,
		),
		rateLimiter: rate.New(b.redis, rate.Config{
			CommandLimit:        cfg.RateLimit.CommandLimit,
			CommandWindow:       cfg.RateLimit.CommandWindow,
			EnableLoginThrottle: cfg.RateLimit.EnableLoginThrottle,
			EnableIPThrottle:    cfg.RateLimit.EnableIPThrottle,
			MaxLoginAttempts:    cfg.RateLimit.MaxLoginAttempts,
			LoginCooldown:       cfg.RateLimit.LoginCooldown,
		}),
		auditor: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
