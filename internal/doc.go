// Package internal contains helper utilities that are intentionally private
// to cshauth, currently secure session-id generation.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — Redis-backed fixed-window rate limit primitives
//
// # What this package must NOT do
//
//   - Carry domain logic (permissions, credentials, session semantics).
//   - Be imported by any package outside the cshauth module.
package internal
