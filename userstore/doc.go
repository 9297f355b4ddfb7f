// Package userstore implements the durable credential store: a mapping of
// username to password hash and permission set, persisted as a single
// human-readable JSON file keyed by username.
//
// # Persistence model
//
// The whole store lives in memory behind a sync.RWMutex and is rewritten to
// disk on every mutation. The rewrite is atomic: the new contents are
// written to a temp file in the same directory, fsynced, and renamed over
// the live file. A failed write rolls the in-memory state back to the
// pre-mutation record, so memory and disk never diverge.
//
// # File format
//
//	{
//	  "alice": {"password_hash": "$argon2id$...", "permissions": "r"},
//	  "bob":   {"password_hash": "$argon2id$...", "permissions": "rwa"}
//	}
//
// Permission strings use the single-letter flag encoding from the
// permission package.
//
// # What this package must NOT do
//
//   - See a plaintext password (the Engine hashes before calling Create/Edit).
//   - Apply permission semantics (it stores sets, the Engine checks them).
//   - Touch sessions (the Engine cascades invalidation on Remove).
package userstore
