package userstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cubeflix/cshauth/password"
	"github.com/cubeflix/cshauth/permission"
)

var (
	// ErrExists reports a Create against a username already present.
	ErrExists = errors.New("user already exists")
	// ErrNotFound reports a lookup or mutation against an absent username.
	ErrNotFound = errors.New("user not found")
	// ErrCorrupt reports an unparseable or invariant-violating users file.
	ErrCorrupt = errors.New("users file corrupt")
)

// Record is one user entry. PasswordHash is always a PHC-encoded hash,
// never a plaintext.
type Record struct {
	Username     string
	PasswordHash string
	Permissions  permission.Set
}

// Update names the fields an Edit should change. Nil fields are left
// untouched.
type Update struct {
	PasswordHash *string
	Permissions  *permission.Set
}

type persistedRecord struct {
	PasswordHash string `json:"password_hash"`
	Permissions  string `json:"permissions"`
}

// Store owns the users file. All exported methods are safe for concurrent
// use; mutations are serialized and each one persists before returning.
type Store struct {
	path string

	mu      sync.RWMutex
	records map[string]Record
}

// Open loads an existing users file. The file must exist and every record
// must be well formed: non-empty username, parseable PHC hash, valid
// permission flags. Duplicate usernames cannot occur because the file is a
// JSON object keyed by username.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}

	var raw map[string]persistedRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	records := make(map[string]Record, len(raw))
	for username, pr := range raw {
		if username == "" {
			return nil, fmt.Errorf("%w: empty username", ErrCorrupt)
		}
		if !password.WellFormed(pr.PasswordHash) {
			return nil, fmt.Errorf("%w: malformed hash for %q", ErrCorrupt, username)
		}
		perms, err := permission.Parse(pr.Permissions)
		if err != nil {
			return nil, fmt.Errorf("%w: bad permissions for %q", ErrCorrupt, username)
		}
		records[username] = Record{
			Username:     username,
			PasswordHash: pr.PasswordHash,
			Permissions:  perms,
		}
	}

	return &Store{path: path, records: records}, nil
}

// Initialize creates a new, empty users file at path, overwriting anything
// already there, and returns a Store backed by it. Provisioning-time only.
func Initialize(path string) (*Store, error) {
	s := &Store{path: path, records: map[string]Record{}}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Create adds a new record. The username must be non-empty and absent;
// hash must already be a well-formed PHC string.
func (s *Store) Create(username, passwordHash string, perms permission.Set) error {
	if username == "" {
		return errors.New("username must not be empty")
	}
	if !password.WellFormed(passwordHash) {
		return errors.New("password hash is not a valid PHC string")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[username]; ok {
		return ErrExists
	}

	s.records[username] = Record{
		Username:     username,
		PasswordHash: passwordHash,
		Permissions:  perms,
	}
	if err := s.persistLocked(); err != nil {
		delete(s.records, username)
		return err
	}

	return nil
}

// Get returns a copy of the record for username.
func (s *Store) Get(username string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[username]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Edit applies the non-nil fields of update to an existing record. The
// whole edit persists or none of it does.
func (s *Store) Edit(username string, update Update) error {
	if update.PasswordHash != nil && !password.WellFormed(*update.PasswordHash) {
		return errors.New("password hash is not a valid PHC string")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[username]
	if !ok {
		return ErrNotFound
	}

	next := prev
	if update.PasswordHash != nil {
		next.PasswordHash = *update.PasswordHash
	}
	if update.Permissions != nil {
		next.Permissions = *update.Permissions
	}

	s.records[username] = next
	if err := s.persistLocked(); err != nil {
		s.records[username] = prev
		return err
	}

	return nil
}

// Remove deletes the record for username.
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[username]
	if !ok {
		return ErrNotFound
	}

	delete(s.records, username)
	if err := s.persistLocked(); err != nil {
		s.records[username] = prev
		return err
	}

	return nil
}

// All returns every record, sorted by username.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// persistLocked rewrites the users file atomically. Callers hold the write
// lock (or exclusive ownership during Initialize).
func (s *Store) persistLocked() error {
	raw := make(map[string]persistedRecord, len(s.records))
	for username, rec := range s.records {
		raw[username] = persistedRecord{
			PasswordHash: rec.PasswordHash,
			Permissions:  rec.Permissions.String(),
		}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close users file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace users file: %w", err)
	}

	return nil
}
