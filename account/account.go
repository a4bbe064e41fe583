package account

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by [Lookup] implementations when no identity matches.
var ErrNotFound = errors.New("account not found")

// Status is the account lifecycle state.
type Status uint8

const (
	// StatusPendingVerification marks an account that has not confirmed its email yet.
	StatusPendingVerification Status = iota + 1
	// StatusActive is the only state allowed to authenticate.
	StatusActive
	// StatusTutorManaged marks an account below the tenant's digital consent age.
	StatusTutorManaged
	// StatusSuspended marks an account blocked by an administrator.
	StatusSuspended
	// StatusDeactivated marks a closed account.
	StatusDeactivated
)

var statusNames = map[Status]string{
	StatusPendingVerification: "PENDING_VERIFICATION",
	StatusActive:              "ACTIVE",
	StatusTutorManaged:        "TUTOR_MANAGED",
	StatusSuspended:           "SUSPENDED",
	StatusDeactivated:         "DEACTIVATED",
}

// String returns the canonical upper-case name, or "UNRECOGNIZED".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNRECOGNIZED"
}

// Valid reports whether s is one of the declared lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus maps a canonical name back to its Status. Matching ignores case.
func ParseStatus(name string) (Status, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Role is a named permission bundle assigned to an identity.
type Role struct {
	Name        string
	Permissions []string
}

// Identity is the credential-bearing view of an account.
//
// Identity values are treated as immutable snapshots; lookups return a fresh copy.
type Identity struct {
	ID           string
	TenantID     string
	FullName     string
	Email        string
	PasswordHash string
	BirthDate    time.Time
	Status       Status
	Roles        []Role
}

// Age returns the identity's age in whole years at now. A zero BirthDate yields -1.
func (i Identity) Age(now time.Time) int {
	if i.BirthDate.IsZero() {
		return -1
	}
	return yearsBetween(i.BirthDate, now)
}

// RoleNames returns role names in assignment order.
func (i Identity) RoleNames() []string {
	out := make([]string, 0, len(i.Roles))
	for _, r := range i.Roles {
		out = append(out, r.Name)
	}
	return out
}

// InitialStatus derives the lifecycle state of a newly registered account. Accounts
// younger than consentAge start guardian-managed; everyone else waits for email
// verification. A non-positive consentAge or an unknown birth date skips the age gate.
func InitialStatus(birthDate time.Time, consentAge int, now time.Time) Status {
	if consentAge > 0 && !birthDate.IsZero() && yearsBetween(birthDate, now) < consentAge {
		return StatusTutorManaged
	}
	return StatusPendingVerification
}

// ActivationStatus is the state a verified account moves to. Minors stay
// guardian-managed until consent is recorded elsewhere.
func ActivationStatus(birthDate time.Time, consentAge int, now time.Time) Status {
	if InitialStatus(birthDate, consentAge, now) == StatusTutorManaged {
		return StatusTutorManaged
	}
	return StatusActive
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Lookup is the credential lookup collaborator implemented by the host's
// persistence layer.
type Lookup interface {
	// FindByTenantAndEmail returns ErrNotFound when the tenant has no such email.
	FindByTenantAndEmail(ctx context.Context, tenantID, email string) (Identity, error)
	// FindByID returns ErrNotFound for unknown ids.
	FindByID(ctx context.Context, accountID string) (Identity, error)
}

func yearsBetween(from, to time.Time) int {
	from = from.UTC()
	to = to.UTC()
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}
