//go:build integration
// +build integration

package test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"

	campusAuth "github.com/MrEthical07/campusAuth"
	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/password"
	"github.com/MrEthical07/campusAuth/tenant"
)

const (
	testSecret   = "integration-signing-secret-0123456789"
	testPassword = "correct-horse"
)

// directories are shared by every engine in a test so instances behave like
// replicas over one database.
type directories struct {
	accounts *account.Directory
	tenants  *tenant.Directory
}

func newDirectories(t *testing.T) directories {
	t.Helper()

	h, err := password.NewArgon2(password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("argon2: %v", err)
	}
	hash, err := h.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	d := directories{accounts: account.NewDirectory(), tenants: tenant.NewDirectory()}
	if err := d.tenants.Put(tenant.Tenant{ID: "t-uni", Name: "Uni", Subdomain: "uni", Active: true}); err != nil {
		t.Fatalf("put tenant: %v", err)
	}
	for _, u := range []struct{ id, email string }{
		{"acc-alice", "alice@uni.edu"},
		{"acc-bob", "bob@uni.edu"},
	} {
		d.accounts.Put(account.Identity{
			ID:           u.id,
			TenantID:     "t-uni",
			Email:        u.email,
			PasswordHash: hash,
			Status:       account.StatusActive,
			Roles:        []account.Role{{Name: "student", Permissions: []string{"courses:read"}}},
		})
		d.tenants.IndexEmail(u.email, "t-uni")
	}
	return d
}

func newEngine(t *testing.T, rdb redis.UniversalClient, d directories) *campusAuth.Engine {
	t.Helper()

	cfg := campusAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Attempts.MaxAttempts = 3
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Tracing.Enabled = false

	engine, err := campusAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialLookup(d.accounts).
		WithTenantLookup(d.tenants).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
