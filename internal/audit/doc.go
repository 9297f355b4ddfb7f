// Package audit implements async event dispatching for security-relevant
// operations: logins, logouts, authorization denials, and user-record
// mutations.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured audit record with id, timestamp, type, username, session, IP.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit — that responsibility belongs to the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Carry plaintext passwords or password hashes in any field.
//   - Import cshauth or any sibling internal package.
package audit
