// Package password implements the one-way credential hashing scheme used by
// the credential store: Argon2id with a per-record random salt.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The encoded string is the only thing ever persisted; verification re-derives
// the key from the supplied plaintext and the parameters embedded in the
// stored string and compares in constant time.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other cshauth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
