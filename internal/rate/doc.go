// Package rate provides the Redis-backed fixed-window counters behind the
// per-session command rate limit and the optional login-attempt throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. The first
// request in a window creates the key with the window's TTL; subsequent
// requests only increment. When the key expires the budget resets. Key
// prefixes:
//   - crl: — commands per-session
//   - cl:  — login attempts per-username
//   - cli: — login attempts per-IP
//
// # What this package must NOT do
//
//   - Decide which operations are rate limited (the Engine does).
//   - Be imported outside the cshauth module.
package rate
