// Package tenant resolves login emails to tenants and enforces that a tenant is
// active before any of its users may authenticate.
//
// Login resolution goes through a single global email index
// ([Lookup.FindTenantForEmail]); clients never supply their subdomain to log in.
// [Resolver.ResolveBySubdomain] remains available for host-based routing checks.
package tenant
