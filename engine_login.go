package cshauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cubeflix/cshauth/internal"
	"github.com/cubeflix/cshauth/internal/rate"
	"github.com/cubeflix/cshauth/permission"
	"github.com/cubeflix/cshauth/session"
	"github.com/cubeflix/cshauth/userstore"
)

// Authenticate verifies a username/password pair and returns the user's
// current permission set. No session is issued.
func (e *Engine) Authenticate(ctx context.Context, username, plaintext string) (permission.Set, error) {
	if e == nil || e.passwordHash == nil {
		return 0, ErrEngineNotReady
	}
	if username == "" || plaintext == "" {
		return 0, ErrLoginMissingFields
	}

	rec, err := e.store().Get(username)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	ok, err := e.passwordHash.Verify(plaintext, rec.PasswordHash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidPassword
	}

	return rec.Permissions, nil
}

// Login authenticates the user and issues a new session, returning the
// session id. The session uses the configured idle timeout.
func (e *Engine) Login(ctx context.Context, username, plaintext string) (string, error) {
	if e == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}
	return e.loginInternal(ctx, username, plaintext, e.config.Session.IdleTimeout)
}

// LoginWithIdleTimeout issues a session with a per-session idle timeout
// override. Requires Config.Session.AllowCustomIdleTimeout; the override
// is clamped to the absolute session lifetime.
func (e *Engine) LoginWithIdleTimeout(ctx context.Context, username, plaintext string, idleTimeout time.Duration) (string, error) {
	if e == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.Session.AllowCustomIdleTimeout {
		return "", errors.New("custom idle timeout not permitted by configuration")
	}
	if idleTimeout <= 0 {
		return "", errors.New("idle timeout must be positive")
	}
	if max := e.config.Session.MaxLifetime; max > 0 && idleTimeout > max {
		idleTimeout = max
	}
	return e.loginInternal(ctx, username, plaintext, idleTimeout)
}

func (e *Engine) loginInternal(ctx context.Context, username, plaintext string, idleTimeout time.Duration) (string, error) {
	ip := clientIPFromContext(ctx)

	if username == "" || plaintext == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, username, "", ErrLoginMissingFields, map[string]string{
			"reason": "missing_fields",
		})
		return "", ErrLoginMissingFields
	}

	if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, username, "", ErrRateLimited, nil)
			return "", ErrRateLimited
		}
		return "", err
	}

	rec, err := e.store().Get(username)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			if incErr := e.incrementLoginFailure(ctx, username, ip); incErr != nil {
				return "", incErr
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, username, "", ErrUserNotFound, map[string]string{
				"reason": "user_not_found",
			})
			return "", ErrUserNotFound
		}
		return "", err
	}

	ok, err := e.passwordHash.Verify(plaintext, rec.PasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		if incErr := e.incrementLoginFailure(ctx, username, ip); incErr != nil {
			return "", incErr
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, username, "", ErrInvalidPassword, map[string]string{
			"reason": "password_mismatch",
		})
		return "", ErrInvalidPassword
	}

	if limit := e.config.Session.MaxSessionsPerUser; limit > 0 {
		count, err := e.sessionStore.ActiveSessionCount(ctx, username)
		if err != nil {
			return "", err
		}
		if count >= limit {
			e.metricInc(MetricSessionLimitHit)
			e.emitAudit(ctx, auditEventLoginFailure, false, username, "", ErrTooManySessions, map[string]string{
				"reason": "session_limit",
			})
			return "", ErrTooManySessions
		}
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return "", fmt.Errorf("session id generation: %w", err)
	}

	idleSeconds := int64(idleTimeout / time.Second)
	if idleSeconds < 1 {
		idleSeconds = 1
	}

	now := time.Now()
	sess := &session.Session{
		SessionID:    sid.String(),
		Username:     username,
		CreatedAt:    now.Unix(),
		LastActiveAt: now.Unix(),
		IdleSeconds:  idleSeconds,
	}
	if max := e.config.Session.MaxLifetime; max > 0 {
		sess.ExpiresAt = now.Add(max).Unix()
	}

	if err := e.sessionStore.Save(ctx, sess); err != nil {
		return "", err
	}

	if err := e.rateLimiter.ResetLogin(ctx, username, ip); err != nil {
		return "", err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, username, sess.SessionID, nil, nil)

	return sess.SessionID, nil
}

// incrementLoginFailure charges a failed attempt against the throttle.
// Crossing the budget on this very attempt reports the rate limit
// instead of the underlying failure, matching CheckLogin on the next
// call.
func (e *Engine) incrementLoginFailure(ctx context.Context, username, ip string) error {
	err := e.rateLimiter.IncrementLogin(ctx, username, ip)
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, username, "", ErrRateLimited, nil)
		return ErrRateLimited
	}
	return err
}
