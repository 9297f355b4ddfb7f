package cshauth

import (
	"context"
	"errors"
	"time"

	"github.com/cubeflix/cshauth/permission"
	"github.com/cubeflix/cshauth/userstore"
)

// Authorize gates one command: the session must validate for username,
// the session's command budget must have room, and the owning user's
// current permission set must contain required. The permission lookup is
// live, never cached at issuance, so edits bind existing sessions on
// their very next command.
func (e *Engine) Authorize(ctx context.Context, sessionID, username string, required permission.Permission) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
		}
	}()

	if _, err := e.Validate(ctx, sessionID, username); err != nil {
		return err
	}

	if err := e.CheckRate(ctx, sessionID); err != nil {
		return err
	}

	rec, err := e.store().Get(username)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			// Removed between validate and here; treat like any other
			// dead session.
			return ErrSessionInvalid
		}
		return err
	}

	if !rec.Permissions.Has(required) {
		e.metricInc(MetricAuthorizeDenied)
		e.emitAudit(ctx, auditEventAuthorizeDenied, false, username, sessionID, ErrPermissionDenied, map[string]string{
			"required": required.String(),
			"granted":  rec.Permissions.String(),
		})
		return ErrPermissionDenied
	}

	e.metricInc(MetricAuthorizeAllowed)
	return nil
}
