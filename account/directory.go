package account

import (
	"context"
	"sync"
)

// Directory is an in-memory [Lookup] for tests, examples and tooling.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]Identity
	byEmail map[string]string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[string]Identity),
		byEmail: make(map[string]string),
	}
}

// Put inserts or replaces an identity. The email is normalized on the way in.
func (d *Directory) Put(id Identity) {
	id.Email = NormalizeEmail(id.Email)
	id.Roles = cloneRoles(id.Roles)

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.byID[id.ID]; ok {
		delete(d.byEmail, emailKey(prev.TenantID, prev.Email))
	}
	d.byID[id.ID] = id
	d.byEmail[emailKey(id.TenantID, id.Email)] = id.ID
}

// SetStatus changes the lifecycle state of an existing identity.
func (d *Directory) SetStatus(accountID string, status Status) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byID[accountID]
	if !ok {
		return false
	}
	id.Status = status
	d.byID[accountID] = id
	return true
}

func (d *Directory) FindByTenantAndEmail(_ context.Context, tenantID, email string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	accountID, ok := d.byEmail[emailKey(tenantID, NormalizeEmail(email))]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return cloneIdentity(d.byID[accountID]), nil
}

func (d *Directory) FindByID(_ context.Context, accountID string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byID[accountID]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return cloneIdentity(id), nil
}

func emailKey(tenantID, email string) string {
	return tenantID + "\x00" + email
}

func cloneIdentity(id Identity) Identity {
	id.Roles = cloneRoles(id.Roles)
	return id
}

func cloneRoles(in []Role) []Role {
	if in == nil {
		return nil
	}
	out := make([]Role, len(in))
	for i, r := range in {
		out[i] = Role{Name: r.Name, Permissions: append([]string(nil), r.Permissions...)}
	}
	return out
}
