package cshauth

import (
	"context"
	"errors"

	"github.com/cubeflix/cshauth/internal"
	"github.com/cubeflix/cshauth/internal/rate"
	"github.com/cubeflix/cshauth/session"
	"github.com/cubeflix/cshauth/userstore"
	"github.com/redis/go-redis/v9"
)

// Validate checks that sessionID names a live session owned by username.
// On success it refreshes the idle window, rewrites last_active_at, and
// returns the session. Failures: empty fields, malformed or unknown ids,
// elapsed absolute lifetime, removed owning user, username mismatch. A
// failed validate never refreshes the idle window.
func (e *Engine) Validate(ctx context.Context, sessionID, username string) (SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return SessionInfo{}, ErrEngineNotReady
	}
	if sessionID == "" || username == "" {
		return SessionInfo{}, ErrMissingFields
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		e.metricInc(MetricValidateFailure)
		return SessionInfo{}, ErrInvalidSessionID
	}

	sess, err := e.sessionStore.Get(ctx, sessionID, username)
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			// Idle-expired sessions evaporate from Redis, so an idled-out
			// id is indistinguishable from one that never existed.
			e.metricInc(MetricValidateFailure)
			return SessionInfo{}, ErrInvalidSessionID
		case errors.Is(err, session.ErrExpired):
			e.metricInc(MetricValidateFailure)
			e.emitAudit(ctx, auditEventSessionInvalid, false, username, sessionID, ErrSessionInvalid, map[string]string{
				"reason": "lifetime_elapsed",
			})
			return SessionInfo{}, ErrSessionInvalid
		case errors.Is(err, session.ErrOwnerMismatch):
			// The store declined without renewing the idle window.
			e.metricInc(MetricValidateFailure)
			e.emitAudit(ctx, auditEventSessionInvalid, false, username, sessionID, ErrSessionInvalid, map[string]string{
				"reason": "username_mismatch",
			})
			return SessionInfo{}, ErrSessionInvalid
		}
		return SessionInfo{}, err
	}

	// A session must always resolve to a live user record; removal of the
	// record invalidates every session it owned.
	if _, err := e.store().Get(sess.Username); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			if _, delErr := e.sessionStore.Delete(ctx, sessionID); delErr != nil {
				return SessionInfo{}, delErr
			}
			e.metricInc(MetricValidateFailure)
			e.emitAudit(ctx, auditEventSessionInvalid, false, username, sessionID, ErrSessionInvalid, map[string]string{
				"reason": "user_removed",
			})
			return SessionInfo{}, ErrSessionInvalid
		}
		return SessionInfo{}, err
	}

	e.metricInc(MetricValidateSuccess)
	return sessionInfo(sess), nil
}

// Logout revokes a session. Revoking an unknown or already revoked
// session fails with the logout error code rather than crashing.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		e.metricInc(MetricLogoutFailure)
		return ErrLogoutFailed
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		e.metricInc(MetricLogoutFailure)
		return ErrLogoutFailed
	}

	existed, err := e.sessionStore.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !existed {
		e.metricInc(MetricLogoutFailure)
		e.emitAudit(ctx, auditEventLogoutFailure, false, "", sessionID, ErrLogoutFailed, nil)
		return ErrLogoutFailed
	}

	// A reissued session starts with a fresh command budget.
	if err := e.rateLimiter.ClearCommand(ctx, sessionID); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, "", sessionID, nil, nil)
	return nil
}

// InvalidateUserSessions revokes every session owned by username. Used by
// RemoveUser's cascade and exposed for admin tooling.
func (e *Engine) InvalidateUserSessions(ctx context.Context, username string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if username == "" {
		return ErrMissingFields
	}

	if err := e.sessionStore.DeleteAllForUser(ctx, username); err != nil {
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventUserSessionsCleared, true, username, "", nil, nil)
	return nil
}

// CheckRate charges one command against the session's fixed window and
// fails once the configured threshold is crossed. The budget restores
// itself when the window elapses.
func (e *Engine) CheckRate(ctx context.Context, sessionID string) error {
	if e == nil || e.rateLimiter == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrMissingFields
	}

	if err := e.rateLimiter.CheckCommand(ctx, sessionID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricRateLimitHit)
			e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", sessionID, ErrRateLimited, nil)
			return ErrRateLimited
		}
		return err
	}

	return nil
}

// SessionsForUser returns the live sessions owned by username without
// touching their idle windows.
func (e *Engine) SessionsForUser(ctx context.Context, username string) ([]SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if username == "" {
		return nil, ErrMissingFields
	}

	sessions, err := e.sessionStore.SessionsForUser(ctx, username)
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sessionInfo(sess))
	}
	return infos, nil
}

// SessionCount returns the global session counter: sessions issued minus
// sessions explicitly revoked. Sessions that idled out of Redis without a
// logout are not subtracted, so this is an upper bound on the live total.
func (e *Engine) SessionCount(ctx context.Context) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessionStore.Count(ctx)
}
