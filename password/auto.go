package password

import "strings"

// Hasher is the contract shared by every algorithm in this package.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) (bool, error)
	Matches(plaintext, encodedHash string) bool
	NeedsUpgrade(encodedHash string) (bool, error)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Auto)(nil)
)

// Auto hashes new passwords with Argon2id and verifies stored hashes with
// whichever algorithm their prefix names.
type Auto struct {
	argon2 *Argon2
	bcrypt *Bcrypt
}

// NewAuto builds an Auto hasher from Argon2 parameters and a bcrypt cost for
// legacy verification (0 selects the bcrypt default).
func NewAuto(cfg Config, bcryptCost int) (*Auto, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Auto{argon2: a, bcrypt: b}, nil
}

// Hash always produces an Argon2id hash.
func (h *Auto) Hash(plaintext string) (string, error) {
	return h.argon2.Hash(plaintext)
}

func (h *Auto) Verify(plaintext, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return h.argon2.Verify(plaintext, encodedHash)
	case isBcrypt(encodedHash):
		return h.bcrypt.Verify(plaintext, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

func (h *Auto) Matches(plaintext, encodedHash string) bool {
	ok, err := h.Verify(plaintext, encodedHash)
	return err == nil && ok
}

// NeedsUpgrade is true for every non-Argon2id hash and for Argon2id hashes
// with weaker parameters.
func (h *Auto) NeedsUpgrade(encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return h.argon2.NeedsUpgrade(encodedHash)
	case isBcrypt(encodedHash):
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}
