package password

import (
	"errors"
	"strings"
	"testing"
)

// cheapConfig keeps the KDF at its floor so the suite stays fast.
func cheapConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newCheap(t *testing.T, mutate func(*Config)) *Argon2 {
	t.Helper()
	cfg := cheapConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestArgon2RoundTrip(t *testing.T) {
	h := newCheap(t, nil)

	hash, err := h.Hash("Campus-Passw0rd!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	again, err := h.Hash("Campus-Passw0rd!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if again == hash {
		t.Fatal("two hashes of one password must differ by salt")
	}

	tests := []struct {
		name      string
		plaintext string
		want      bool
	}{
		{"correct", "Campus-Passw0rd!", true},
		{"wrong", "campus-passw0rd!", false},
		{"prefix only", "Campus", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := h.Verify(tc.plaintext, hash)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("Verify = %v, want %v", ok, tc.want)
			}
			if h.Matches(tc.plaintext, hash) != tc.want {
				t.Fatalf("Matches disagrees with Verify")
			}
		})
	}
}

func TestArgon2RejectsBadEncodings(t *testing.T) {
	h := newCheap(t, nil)
	valid, err := h.Hash("enrolment-2026")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	for name, encoded := range map[string]string{
		"not phc":       "not-a-phc-hash",
		"truncated":     "$argon2id$garbage",
		"wrong version": strings.Replace(valid, "$v=19$", "$v=18$", 1),
		"bcrypt":        "$2a$10$abcdefghijklmnopqrstuu",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := h.Verify("enrolment-2026", encoded); err == nil {
				t.Fatal("expected an error")
			}
			if h.Matches("enrolment-2026", encoded) {
				t.Fatal("malformed hash must not match")
			}
		})
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := newCheap(t, nil)
	strong := newCheap(t, func(c *Config) { c.Time = 2 })

	hash, err := weak.Hash("grades-are-in")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if up, err := strong.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("stronger hasher should ask for upgrade: %v %v", up, err)
	}
	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("same parameters should not need upgrade: %v %v", up, err)
	}
}

func TestArgon2PasswordLength(t *testing.T) {
	h := newCheap(t, func(c *Config) { c.MaxPasswordBytes = 64 })

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("max-length password rejected: %v", err)
	}
	if ok, err := h.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("max-length verify: ok=%v err=%v", ok, err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); err == nil {
		t.Fatal("Verify should reject over-long input before the KDF")
	}

	def := newCheap(t, nil)
	if _, err := def.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); err == nil {
		t.Fatalf("expected password > %d bytes to be rejected", DefaultMaxPasswordBytes)
	}
}

func TestNewArgon2Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory below floor", func(c *Config) { c.Memory = 1024 }},
		{"zero time", func(c *Config) { c.Time = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"short salt", func(c *Config) { c.SaltLength = 8 }},
		{"negative max bytes", func(c *Config) { c.MaxPasswordBytes = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := cheapConfig()
			tc.mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}
