package tenant

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrSubdomainTaken is returned by [Directory.Put] when another tenant already owns
// the subdomain, or when a tenant tries to change its subdomain.
var ErrSubdomainTaken = errors.New("subdomain already assigned")

// Directory is an in-memory [Lookup] holding tenants and the global email index.
type Directory struct {
	mu          sync.RWMutex
	byID        map[string]Tenant
	bySubdomain map[string]string
	emailIndex  map[string]string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byID:        make(map[string]Tenant),
		bySubdomain: make(map[string]string),
		emailIndex:  make(map[string]string),
	}
}

// Put registers or updates a tenant. Subdomains are immutable once assigned.
func (d *Directory) Put(t Tenant) error {
	t.Subdomain = NormalizeSubdomain(t.Subdomain)

	d.mu.Lock()
	defer d.mu.Unlock()

	if owner, ok := d.bySubdomain[t.Subdomain]; ok && owner != t.ID {
		return ErrSubdomainTaken
	}
	if prev, ok := d.byID[t.ID]; ok && prev.Subdomain != t.Subdomain {
		return ErrSubdomainTaken
	}
	d.byID[t.ID] = t
	d.bySubdomain[t.Subdomain] = t.ID
	return nil
}

// SetActive toggles the active flag of a registered tenant.
func (d *Directory) SetActive(tenantID string, active bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.byID[tenantID]
	if !ok {
		return false
	}
	t.Active = active
	d.byID[tenantID] = t
	return true
}

// IndexEmail points email at tenantID in the global email index.
func (d *Directory) IndexEmail(email, tenantID string) {
	d.mu.Lock()
	d.emailIndex[strings.ToLower(strings.TrimSpace(email))] = tenantID
	d.mu.Unlock()
}

func (d *Directory) FindByID(_ context.Context, tenantID string) (Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.byID[tenantID]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (d *Directory) FindBySubdomain(_ context.Context, subdomain string) (Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.bySubdomain[NormalizeSubdomain(subdomain)]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return d.byID[id], nil
}

func (d *Directory) FindTenantForEmail(_ context.Context, email string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.emailIndex[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}
