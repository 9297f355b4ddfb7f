// Package cshauth is the credential and session-authorization core of a
// networked file server: it stores per-user credentials and permission
// grants, issues and validates opaque sessions, and enforces per-command
// authorization and rate limits. The surrounding protocol layer handles
// the transport and calls into this package per incoming command.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// cshauth is the public surface. It exposes [Engine], [Builder], [Config],
// the wire-stable [Error] values, and value types (User, SessionInfo,
// MetricsSnapshot). Session encoding, rate limiting, and audit dispatch
// live under internal/ and are never exported. The userstore, permission,
// and password packages are public because the administrative CLI consumes
// them directly.
//
// # Error contract
//
// Every expected failure carries a stable numeric taxonomy code that the
// protocol layer serializes into the wire response unchanged; see [Code]
// and [CodeOf]. Storage faults and Redis outages are ordinary wrapped
// errors without a code and must abort the in-flight command.
//
// # What this package must NOT do
//
//   - Write to the network or know anything about wire framing.
//   - Log, echo, or persist a plaintext password anywhere, including
//     audit metadata.
//   - Expose Redis clients or session encoding details in its public API.
package cshauth
