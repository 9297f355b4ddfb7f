package cshauth

import "errors"

// Code is the stable numeric identifier carried by every expected
// failure. The values are a wire contract consumed verbatim by the
// protocol layer and must never be renumbered.
type Code int

const (
	CodeSessionInvalid     Code = 1
	CodeLogoutFailed       Code = 2
	CodeLoginMissingFields Code = 12
	CodeUserNotFound       Code = 13
	CodeInvalidPassword    Code = 14
	CodeMissingFields      Code = 15
	CodeInvalidSessionID   Code = 16
	CodePermissionDenied   Code = 19
	CodeRateLimited        Code = 20
	CodeTooManySessions    Code = 24
	CodeUserExists         Code = 25
)

// Error is an expected failure: one taxonomy code plus a human-readable
// message. Fatal storage faults are ordinary wrapped errors and never
// carry a code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrSessionInvalid covers sessions that exist but no longer
	// authorize anything: absolute lifetime elapsed, owning user record
	// removed, or username mismatch.
	ErrSessionInvalid = &Error{Code: CodeSessionInvalid, Message: "session invalid"}
	// ErrLogoutFailed reports a logout of an unknown or already revoked session.
	ErrLogoutFailed = &Error{Code: CodeLogoutFailed, Message: "error logging out"}
	// ErrLoginMissingFields reports a login with an empty username or password.
	ErrLoginMissingFields = &Error{Code: CodeLoginMissingFields, Message: "login missing username or password"}
	// ErrUserNotFound is an exported constant or variable used by the authorization engine.
	ErrUserNotFound = &Error{Code: CodeUserNotFound, Message: "user doesn't exist"}
	// ErrInvalidPassword is an exported constant or variable used by the authorization engine.
	ErrInvalidPassword = &Error{Code: CodeInvalidPassword, Message: "invalid password"}
	// ErrMissingFields reports a command with an empty username or session id.
	ErrMissingFields = &Error{Code: CodeMissingFields, Message: "missing username or session id"}
	// ErrInvalidSessionID reports a session id that is malformed or unknown.
	ErrInvalidSessionID = &Error{Code: CodeInvalidSessionID, Message: "invalid session id"}
	// ErrPermissionDenied is an exported constant or variable used by the authorization engine.
	ErrPermissionDenied = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	// ErrRateLimited is an exported constant or variable used by the authorization engine.
	ErrRateLimited = &Error{Code: CodeRateLimited, Message: "rate limit exceeded"}
	// ErrTooManySessions reports a login that would exceed the per-user session cap.
	ErrTooManySessions = &Error{Code: CodeTooManySessions, Message: "too many sessions for user"}
	// ErrUserExists reports a create for a username already present.
	ErrUserExists = &Error{Code: CodeUserExists, Message: "user already exists"}

	// ErrEngineNotReady is an exported constant or variable used by the authorization engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// CodeOf extracts the taxonomy code from err, unwrapping as needed.
// ok is false for nil errors and for fatal errors outside the taxonomy.
func CodeOf(err error) (code Code, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
