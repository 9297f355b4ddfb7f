package cshauth

import (
	"time"

	"github.com/cubeflix/cshauth/permission"
)

// User is the admin-surface view of a credential record. The password
// hash never leaves the store through this type.
type User struct {
	Username    string
	Permissions permission.Set
}

// SessionInfo is the introspection view of a live session.
type SessionInfo struct {
	SessionID    string
	Username     string
	CreatedAt    time.Time
	LastActiveAt time.Time

	// ExpiresAt is the absolute deadline; zero when the session has no
	// absolute bound.
	ExpiresAt time.Time
}
