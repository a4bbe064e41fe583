package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no tenant matches the lookup key.
	ErrNotFound = errors.New("tenant not found")
	// ErrInactive is returned by [Resolver.AssertActive] for disabled tenants.
	ErrInactive = errors.New("tenant is inactive")
)

// Tenant is an isolated organizational namespace.
type Tenant struct {
	ID                string
	Name              string
	Subdomain         string
	Active            bool
	DigitalConsentAge int
}

// Lookup is the tenant persistence collaborator. Every method returns
// ErrNotFound when the key is unknown.
type Lookup interface {
	FindByID(ctx context.Context, tenantID string) (Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (Tenant, error)
	FindTenantForEmail(ctx context.Context, email string) (string, error)
}

// Resolver maps emails and subdomains to tenants.
type Resolver struct {
	lookup Lookup
}

// NewResolver wraps a tenant lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// ResolveByEmail returns the id of the tenant that owns email.
func (r *Resolver) ResolveByEmail(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrNotFound
	}
	id, err := r.lookup.FindTenantForEmail(ctx, email)
	if err != nil {
		return "", wrapLookup(err)
	}
	if id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

// ResolveBySubdomain returns the tenant registered under subdomain.
func (r *Resolver) ResolveBySubdomain(ctx context.Context, subdomain string) (Tenant, error) {
	subdomain = NormalizeSubdomain(subdomain)
	if subdomain == "" {
		return Tenant{}, ErrNotFound
	}
	t, err := r.lookup.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return Tenant{}, wrapLookup(err)
	}
	return t, nil
}

// Load returns the tenant with the given id.
func (r *Resolver) Load(ctx context.Context, tenantID string) (Tenant, error) {
	if tenantID == "" {
		return Tenant{}, ErrNotFound
	}
	t, err := r.lookup.FindByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, wrapLookup(err)
	}
	return t, nil
}

// AssertActive fails with ErrInactive when the tenant rejects logins.
func (r *Resolver) AssertActive(t Tenant) error {
	if !t.Active {
		return fmt.Errorf("%w: %s", ErrInactive, t.Subdomain)
	}
	return nil
}

// ResolveActiveByEmail resolves the owning tenant of email, loads it and asserts
// that it is active. It returns the loaded tenant alongside ErrInactive so callers
// can still attribute the failure.
func (r *Resolver) ResolveActiveByEmail(ctx context.Context, email string) (Tenant, error) {
	id, err := r.ResolveByEmail(ctx, email)
	if err != nil {
		return Tenant{}, err
	}
	t, err := r.Load(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if err := r.AssertActive(t); err != nil {
		return t, err
	}
	return t, nil
}

// NormalizeSubdomain lowercases and trims a subdomain label.
func NormalizeSubdomain(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}

func wrapLookup(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("tenant lookup: %w", err)
}
