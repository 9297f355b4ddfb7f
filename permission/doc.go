// Package permission defines the capability vocabulary (read, write, admin)
// and the flag-set type used by authorization checks.
//
// # Semantics
//
// Each permission is an independent flag. Holding Write does not imply Read,
// and holding Admin does not imply Write or Read: a check passes only when
// the exact required flag was granted. This rules out privilege escalation
// through assumed hierarchies.
//
// # Encoding
//
// A [Set] round-trips through the single-letter flag string used by the
// persisted users file and the wire protocol: "r", "w", "a" concatenated in
// canonical order ("rw", "rwa", ...). The empty string is the empty set.
//
// # What this package must NOT do
//
//   - Access Redis, the users file, or the network.
//   - Import cshauth, session, or userstore.
//   - Apply implication rules between flags.
package permission
