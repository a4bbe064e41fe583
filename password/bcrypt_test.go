package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptRoundTrip(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := b.Hash("legacy-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}
	if !b.Matches("legacy-password", hash) {
		t.Fatal("expected bcrypt match")
	}
	if b.Matches("other-password", hash) {
		t.Fatal("wrong password matched")
	}
	if ok, err := b.Verify("legacy-password", "$argon2id$v=19$x"); ok || !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("Verify(non-bcrypt) = %v, %v", ok, err)
	}
}

func TestBcryptLimits(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected out-of-range cost to be rejected")
	}
	b, _ := NewBcrypt(bcrypt.MinCost)
	if _, err := b.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := b.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak, _ := NewBcrypt(bcrypt.MinCost)
	hash, err := weak.Hash("legacy-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong, _ := NewBcrypt(bcrypt.MinCost + 1)
	if up, err := strong.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("NeedsUpgrade = %v, %v", up, err)
	}
	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("NeedsUpgrade(same cost) = %v, %v", up, err)
	}
}
