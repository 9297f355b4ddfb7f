// Package session provides Redis-backed session persistence and compact
// binary session encoding for the command authorization hot path.
//
// # Lifetime model
//
// A session blob carries its creation time, last-active time, and absolute
// expiry. The idle timeout is the Redis key TTL: validating a session
// renews the TTL (sliding expiration) and rewrites last_active_at, while a
// session left idle simply ages out of Redis. The absolute expiry is
// enforced on read regardless of TTL.
//
// # Indexing
//
// Each user has a Redis set of live session ids, used for per-user session
// caps and revoke-all. A global counter tracks sessions issued minus
// sessions explicitly revoked; sessions that idle out of Redis are never
// subtracted, so the counter is an upper bound on the live total.
// Compound mutations (delete + index + counter) run as Lua scripts so they
// are atomic with respect to concurrent callers.
//
// # What this package must NOT do
//
//   - Import cshauth, permission, or userstore (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store credentials or permission sets in [Session] fields.
package session
