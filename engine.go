package cshauth

import (
	"context"
	"sync"
	"time"

	"github.com/cubeflix/cshauth/internal/audit"
	"github.com/cubeflix/cshauth/internal/rate"
	"github.com/cubeflix/cshauth/password"
	"github.com/cubeflix/cshauth/session"
	"github.com/cubeflix/cshauth/userstore"
)

// Engine is the credential and session-authorization core. It is built
// once through a Builder and is safe for concurrent use; the only
// mutable piece is the users store pointer, swapped by InitializeStore.
type Engine struct {
	config       Config
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	auditor      *audit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Hasher

	mu    sync.RWMutex
	users *userstore.Store
}

// Close describes the close operation and its observable behavior.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.auditor != nil {
		e.auditor.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.auditor.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) store() *userstore.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.users
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	sessionID string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.auditor == nil {
		return
	}

	event := audit.Event{
		EventID:   audit.NewEventID(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.auditor.Emit(ctx, event)
}

func sessionInfo(sess *session.Session) SessionInfo {
	info := SessionInfo{
		SessionID:    sess.SessionID,
		Username:     sess.Username,
		CreatedAt:    time.Unix(sess.CreatedAt, 0).UTC(),
		LastActiveAt: time.Unix(sess.LastActiveAt, 0).UTC(),
	}
	if sess.ExpiresAt > 0 {
		info.ExpiresAt = time.Unix(sess.ExpiresAt, 0).UTC()
	}
	return info
}
