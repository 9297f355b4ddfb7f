package cshauth

import (
	"context"
	"errors"

	"github.com/cubeflix/cshauth/permission"
	"github.com/cubeflix/cshauth/userstore"
)

// CreateUser hashes the plaintext and adds a new credential record. The
// store never sees a plaintext password.
func (e *Engine) CreateUser(ctx context.Context, username, plaintext string, perms permission.Set) error {
	if e == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if username == "" || plaintext == "" {
		return ErrMissingFields
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return err
	}

	if err := e.store().Create(username, hash, perms); err != nil {
		if errors.Is(err, userstore.ErrExists) {
			return ErrUserExists
		}
		return err
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreated, true, username, "", nil, map[string]string{
		"permissions": perms.String(),
	})
	return nil
}

// GetUser returns the admin view of a credential record. The password
// hash is deliberately withheld.
func (e *Engine) GetUser(username string) (User, error) {
	if e == nil {
		return User{}, ErrEngineNotReady
	}
	if username == "" {
		return User{}, ErrMissingFields
	}

	rec, err := e.store().Get(username)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return User{Username: rec.Username, Permissions: rec.Permissions}, nil
}

// EditUser updates the password and/or permissions of an existing record,
// leaving nil fields unchanged. Permission edits revoke the user's open
// sessions only under Config.Policy.RevokeSessionsOnPermissionChange;
// otherwise they bind existing sessions on their next authorize.
func (e *Engine) EditUser(ctx context.Context, username string, newPlaintext *string, newPerms *permission.Set) error {
	if e == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if username == "" {
		return ErrMissingFields
	}

	var update userstore.Update
	if newPlaintext != nil {
		if *newPlaintext == "" {
			return ErrLoginMissingFields
		}
		hash, err := e.passwordHash.Hash(*newPlaintext)
		if err != nil {
			return err
		}
		update.PasswordHash = &hash
	}
	update.Permissions = newPerms

	if err := e.store().Edit(username, update); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if newPerms != nil && e.config.Policy.RevokeSessionsOnPermissionChange {
		if err := e.InvalidateUserSessions(ctx, username); err != nil {
			return err
		}
	}

	e.metricInc(MetricUserEdited)
	e.emitAudit(ctx, auditEventUserEdited, true, username, "", nil, map[string]string{
		"password_changed":    boolString(newPlaintext != nil),
		"permissions_changed": boolString(newPerms != nil),
	})
	return nil
}

// RemoveUser deletes a credential record and revokes every session it
// owned.
func (e *Engine) RemoveUser(ctx context.Context, username string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if username == "" {
		return ErrMissingFields
	}

	if err := e.store().Remove(username); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := e.InvalidateUserSessions(ctx, username); err != nil {
		return err
	}

	e.metricInc(MetricUserRemoved)
	e.emitAudit(ctx, auditEventUserRemoved, true, username, "", nil, nil)
	return nil
}

// InitializeStore replaces the backing users file with a fresh empty
// store. Provisioning-time only; open sessions for old users die on
// their next validate because the records are gone.
func (e *Engine) InitializeStore(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	path := e.users.Path()
	fresh, err := userstore.Initialize(path)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.users = fresh
	e.mu.Unlock()

	e.emitAudit(ctx, auditEventStoreInitialized, true, "", "", nil, nil)
	return nil
}

// Users lists every credential record, sorted by username.
func (e *Engine) Users() []User {
	if e == nil {
		return nil
	}

	records := e.store().All()
	users := make([]User, 0, len(records))
	for _, rec := range records {
		users = append(users, User{Username: rec.Username, Permissions: rec.Permissions})
	}
	return users
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
