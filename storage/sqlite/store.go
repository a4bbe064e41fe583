package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/refresh"
	"github.com/MrEthical07/campusAuth/tenant"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrEmailTaken is returned by PutAccount when the email is already indexed
// under a different tenant.
var ErrEmailTaken = errors.New("email already indexed under another tenant")

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements refresh-token, tenant and credential persistence over SQLite.
type Store struct {
	sqlDB     *sql.DB
	retention time.Duration
	now       func() time.Time
}

var (
	_ refresh.Store  = (*Store)(nil)
	_ tenant.Lookup  = (*Store)(nil)
	_ account.Lookup = accountView{}
)

// Option configures a Store.
type Option func(*Store)

// WithRetention keeps revoked refresh records for d before Sweep drops them.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens a SQLite database file and applies the bundled schema.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single writer connection keeps revoke check-and-set serialized
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the raw database handle.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
}

/*
====================================
REFRESH TOKENS
====================================
*/

// Save inserts a new record. An existing token hash is left untouched and
// reported as refresh.ErrExists.
func (s *Store) Save(ctx context.Context, token, accountID string, expiresAt time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO refresh_tokens (token_hash, account_id, expires_at, revoked, created_at, revoked_at)
VALUES (?, ?, ?, 0, ?, NULL)
ON CONFLICT (token_hash) DO NOTHING`,
		refresh.HashToken(token), accountID, toMillis(expiresAt), toMillis(s.now()))
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return refresh.ErrExists
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, token string) (*refresh.Record, error) {
	hash := refresh.HashToken(token)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT account_id, expires_at, revoked, created_at, revoked_at
FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		rec       = refresh.Record{TokenHash: hash}
		expiresAt int64
		revoked   int
		createdAt int64
		revokedAt sql.NullInt64
	)
	if err := row.Scan(&rec.AccountID, &expiresAt, &revoked, &createdAt, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refresh.ErrNotFound
		}
		return nil, unavailable(err)
	}
	rec.ExpiresAt = fromMillis(expiresAt)
	rec.Revoked = revoked != 0
	rec.CreatedAt = fromMillis(createdAt)
	if revokedAt.Valid {
		rec.RevokedAt = fromMillis(revokedAt.Int64)
	}
	return &rec, nil
}

func (s *Store) FindOwner(ctx context.Context, token string) (string, bool, error) {
	rec, err := s.Lookup(ctx, token)
	if errors.Is(err, refresh.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !rec.Usable(s.now()) {
		return "", false, nil
	}
	return rec.AccountID, true, nil
}

func (s *Store) IsValid(ctx context.Context, token string) (bool, error) {
	_, ok, err := s.FindOwner(ctx, token)
	return ok, err
}

// Revoke is a conditional UPDATE; only the statement that flips the row
// observes one affected row.
func (s *Store) Revoke(ctx context.Context, token string) (bool, error) {
	now := toMillis(s.now())
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`,
		now, refresh.HashToken(token), now)
	if err != nil {
		return false, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

func (s *Store) RevokeAll(ctx context.Context, accountID string) (int, error) {
	now := toMillis(s.now())
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
WHERE account_id = ? AND revoked = 0 AND expires_at > ?`,
		now, accountID, now)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

func (s *Store) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM refresh_tokens
WHERE expires_at <= ? OR (revoked = 1 AND revoked_at <= ?)`,
		toMillis(now), toMillis(now.Add(-s.retention)))
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

/*
====================================
TENANTS
====================================
*/

// PutTenant inserts or replaces a tenant. The subdomain is stored normalized.
func (s *Store) PutTenant(ctx context.Context, t tenant.Tenant) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tenants (id, name, subdomain, active, digital_consent_age)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    active = excluded.active,
    digital_consent_age = excluded.digital_consent_age`,
		t.ID, t.Name, tenant.NormalizeSubdomain(t.Subdomain), boolToInt(t.Active), t.DigitalConsentAge)
	if err != nil {
		return fmt.Errorf("put tenant: %w", err)
	}
	return nil
}

// SetTenantActive toggles a tenant's active flag.
func (s *Store) SetTenantActive(ctx context.Context, tenantID string, active bool) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tenants SET active = ? WHERE id = ?`, boolToInt(active), tenantID)
	if err != nil {
		return fmt.Errorf("set tenant active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	return s.scanTenant(s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, subdomain, active, digital_consent_age FROM tenants WHERE id = ?`, tenantID))
}

func (s *Store) FindBySubdomain(ctx context.Context, subdomain string) (tenant.Tenant, error) {
	return s.scanTenant(s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, subdomain, active, digital_consent_age FROM tenants WHERE subdomain = ?`,
		tenant.NormalizeSubdomain(subdomain)))
}

func (s *Store) FindTenantForEmail(ctx context.Context, email string) (string, error) {
	var tenantID string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT tenant_id FROM email_index WHERE email = ?`,
		account.NormalizeEmail(email)).Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", tenant.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find tenant for email: %w", err)
	}
	return tenantID, nil
}

func (s *Store) scanTenant(row *sql.Row) (tenant.Tenant, error) {
	var (
		t      tenant.Tenant
		active int
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &active, &t.DigitalConsentAge); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		return tenant.Tenant{}, fmt.Errorf("scan tenant: %w", err)
	}
	t.Active = active != 0
	return t, nil
}

/*
====================================
ACCOUNTS
====================================
*/

type dbRole struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// PutAccount inserts or replaces an identity and indexes its email under the
// identity's tenant.
func (s *Store) PutAccount(ctx context.Context, id account.Identity) (err error) {
	email := account.NormalizeEmail(id.Email)
	roles := make([]dbRole, 0, len(id.Roles))
	for _, r := range id.Roles {
		roles = append(roles, dbRole{Name: r.Name, Permissions: r.Permissions})
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	var birth sql.NullInt64
	if !id.BirthDate.IsZero() {
		birth = sql.NullInt64{Int64: toMillis(id.BirthDate), Valid: true}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put account: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var indexed string
	switch scanErr := tx.QueryRowContext(ctx, `SELECT tenant_id FROM email_index WHERE email = ?`, email).Scan(&indexed); {
	case errors.Is(scanErr, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx, `INSERT INTO email_index (email, tenant_id) VALUES (?, ?)`, email, id.TenantID); err != nil {
			return fmt.Errorf("index email: %w", err)
		}
	case scanErr != nil:
		err = fmt.Errorf("read email index: %w", scanErr)
		return err
	case indexed != id.TenantID:
		err = ErrEmailTaken
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO accounts (id, tenant_id, full_name, email, password_hash, birth_date, status, roles)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    full_name = excluded.full_name,
    email = excluded.email,
    password_hash = excluded.password_hash,
    birth_date = excluded.birth_date,
    status = excluded.status,
    roles = excluded.roles`,
		id.ID, id.TenantID, id.FullName, email, id.PasswordHash, birth, id.Status.String(), string(rolesJSON))
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit put account: %w", err)
	}
	return nil
}

// SetAccountStatus updates an account's lifecycle state.
func (s *Store) SetAccountStatus(ctx context.Context, accountID string, status account.Status) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE accounts SET status = ? WHERE id = ?`, status.String(), accountID)
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrNotFound
	}
	return nil
}

const accountColumns = `id, tenant_id, full_name, email, password_hash, birth_date, status, roles`

func (s *Store) FindByTenantAndEmail(ctx context.Context, tenantID, email string) (account.Identity, error) {
	return scanAccount(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tenant_id = ? AND email = ?`,
		tenantID, account.NormalizeEmail(email)))
}

// FindAccountByID returns the identity with the given id. It is exposed under
// this name because FindByID belongs to the tenant lookup; use [Store.Accounts]
// where an account.Lookup is needed.
func (s *Store) FindAccountByID(ctx context.Context, accountID string) (account.Identity, error) {
	return scanAccount(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID))
}

// Accounts adapts the store to account.Lookup.
func (s *Store) Accounts() account.Lookup {
	return accountView{s}
}

type accountView struct{ s *Store }

func (v accountView) FindByTenantAndEmail(ctx context.Context, tenantID, email string) (account.Identity, error) {
	return v.s.FindByTenantAndEmail(ctx, tenantID, email)
}

func (v accountView) FindByID(ctx context.Context, accountID string) (account.Identity, error) {
	return v.s.FindAccountByID(ctx, accountID)
}

func scanAccount(row *sql.Row) (account.Identity, error) {
	var (
		id        account.Identity
		birth     sql.NullInt64
		status    string
		rolesJSON string
	)
	if err := row.Scan(&id.ID, &id.TenantID, &id.FullName, &id.Email, &id.PasswordHash, &birth, &status, &rolesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Identity{}, account.ErrNotFound
		}
		return account.Identity{}, fmt.Errorf("scan account: %w", err)
	}
	if birth.Valid {
		id.BirthDate = fromMillis(birth.Int64)
	}
	// unknown names decode to the zero Status, which never authenticates
	id.Status, _ = account.ParseStatus(status)

	var roles []dbRole
	if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
		return account.Identity{}, fmt.Errorf("decode roles for %s: %w", id.ID, err)
	}
	for _, r := range roles {
		id.Roles = append(id.Roles, account.Role{Name: r.Name, Permissions: r.Permissions})
	}
	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
