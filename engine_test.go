package cshauth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cubeflix/cshauth/permission"
	"github.com/cubeflix/cshauth/userstore"
	"github.com/redis/go-redis/v9"
)

// engineTestConfig keeps Argon2 cheap so the suite stays fast.
func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := userstore.Initialize(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("failed to initialize user store: %v", err)
	}

	cfg := engineTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(store).
		Build()
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func mustCreateUser(t *testing.T, engine *Engine, username, plaintext, flags string) {
	t.Helper()

	perms, err := permission.Parse(flags)
	if err != nil {
		t.Fatalf("failed to parse permissions %q: %v", flags, err)
	}
	if err := engine.CreateUser(context.Background(), username, plaintext, perms); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
}

func mustLogin(t *testing.T, engine *Engine, username, plaintext string) string {
	t.Helper()

	sid, err := engine.Login(context.Background(), username, plaintext)
	if err != nil {
		t.Fatalf("login for %s failed: %v", username, err)
	}
	return sid
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error with code %d, got nil", want)
	}
	code, ok := CodeOf(err)
	if !ok {
		t.Fatalf("expected taxonomy code %d, got non-taxonomy error %v", want, err)
	}
	if code != want {
		t.Fatalf("expected code %d, got %d (%v)", want, code, err)
	}
}
