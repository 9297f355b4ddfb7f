package cshauth

import (
	"io"

	"github.com/cubeflix/cshauth/internal/audit"
)

// AuditEvent is the record delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Sinks must be safe for
// concurrent use; the dispatcher calls Emit from a single goroutine but
// nothing stops a sink from being shared.
type AuditSink = audit.Sink

// NoOpSink drops every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events into a channel for test assertions or
// out-of-process forwarding.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line to a writer.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventLogoutSession       = "logout_session"
	auditEventLogoutFailure       = "logout_failure"
	auditEventSessionInvalid      = "session_invalid"
	auditEventAuthorizeDenied     = "authorize_denied"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventUserCreated         = "user_created"
	auditEventUserEdited          = "user_edited"
	auditEventUserRemoved         = "user_removed"
	auditEventUserSessionsCleared = "user_sessions_cleared"
	auditEventStoreInitialized    = "store_initialized"
)
