package session

// Session is the stored state for one authenticated client identity.
// It references its owning user by name only; the credential store is the
// single owner of user records, so deleting a user leaves no dangling
// pointer here, just ids that stop validating.
type Session struct {
	SessionID string
	Username  string

	CreatedAt    int64
	LastActiveAt int64

	// ExpiresAt is the absolute lifetime bound as a unix timestamp.
	// Zero means no absolute bound.
	ExpiresAt int64

	// IdleSeconds is the session's idle timeout. Stored in the blob so
	// per-session overrides survive sliding renewals.
	IdleSeconds int64
}
