package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 private key (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	// TypeAccess marks access tokens.
	TypeAccess = "access"
	// TypeRefresh marks refresh tokens.
	TypeRefresh = "refresh"

	// DefaultAccessTTL is 900000 ms.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is 604800000 ms.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken is returned for tokens with a bad signature, a malformed
	// structure, an expired lifetime or the wrong type marker.
	ErrInvalidToken = errors.New("invalid token")
)

// Config defines signing keys, lifetimes and validation knobs for a Codec.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for hs256 or the Ed25519 private key (raw or PEM).
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	// MaxFutureIAT rejects tokens issued further in the future than this (default 10m).
	MaxFutureIAT time.Duration
	KeyID        string
	// VerifyKeys maps kid to verification key for key rotation.
	VerifyKeys map[string][]byte
	Now        func() time.Time
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID          string   `json:"userId"`
	TenantID        string   `json:"organizationId"`
	TenantSubdomain string   `json:"organizationSubdomain"`
	FullName        string   `json:"fullName,omitempty"`
	Roles           []string `json:"roles"`
	Permissions     []string `json:"permissions"`
	AccountStatus   string   `json:"accountStatus"`
	TokenType       string   `json:"tokenType"`
	jwt.RegisteredClaims
}

// RefreshClaims is the deliberately small payload of a refresh token.
type RefreshClaims struct {
	UserID    string `json:"userId"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens. It is immutable after
// NewCodec and safe for concurrent use.
type Codec struct {
	config Config
	method jwt.SigningMethod
	sign   interface{}
	verify interface{}
}

// NewCodec validates cfg and prepares signing keys.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	c := &Codec{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a signing secret")
		}
		c.method = jwt.SigningMethodHS256
		c.sign = cfg.PrivateKey
		c.verify = cfg.PrivateKey
	case MethodEd25519:
		c.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.sign = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verify = pub
		}
		if len(cfg.VerifyKeys) == 0 && c.verify == nil {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	return c, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// SignAccess signs claims as an access token expiring AccessTTL from now. The
// registered time claims and the type marker are overwritten; Subject should
// carry the account email.
func (c *Codec) SignAccess(claims AccessClaims) (string, time.Time, error) {
	now := c.config.Now()
	claims.TokenType = TypeAccess
	claims.RegisteredClaims = c.registered(claims.Subject, "", now, c.config.AccessTTL)

	token, err := c.signed(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// SignRefresh signs a refresh token for accountID expiring RefreshTTL from now.
// Each token gets a random jti, so two tokens minted in the same second differ.
func (c *Codec) SignRefresh(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("refresh token requires an account id")
	}
	now := c.config.Now()
	claims := RefreshClaims{
		UserID:           accountID,
		TokenType:        TypeRefresh,
		RegisteredClaims: c.registered("", uuid.NewString(), now, c.config.RefreshTTL),
	}

	token, err := c.signed(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify reports whether token carries a valid signature and has not expired.
// Claim semantics, including the type marker, are not inspected.
func (c *Codec) Verify(token string) bool {
	_, err := c.parse(token, jwt.MapClaims{})
	return err == nil
}

// ExtractClaims returns every claim of a verified token.
func (c *Codec) ExtractClaims(token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, err := c.parse(token, claims); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}

// ExtractSubjectEmail returns the subject (account email) of a verified token.
func (c *Codec) ExtractSubjectEmail(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, err := c.parse(token, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}

// ExtractAccountID returns the userId claim of a verified token of either type.
func (c *Codec) ExtractAccountID(token string) (string, error) {
	return c.stringClaim(token, "userId")
}

// ExtractTenantID returns the organizationId claim of a verified access token.
func (c *Codec) ExtractTenantID(token string) (string, error) {
	return c.stringClaim(token, "organizationId")
}

// ParseAccess verifies token and requires the access type marker.
func (c *Codec) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := c.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return claims, nil
}

// ParseRefresh verifies token and requires the refresh type marker.
func (c *Codec) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := c.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh || claims.UserID == "" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return claims, nil
}

func (c *Codec) registered(subject, id string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        id,
		Issuer:    c.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if c.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{c.config.Audience}
	}
	return rc
}

func (c *Codec) signed(claims jwt.Claims) (string, error) {
	if c.sign == nil {
		return "", errors.New("codec has no signing key")
	}
	token := jwt.NewWithClaims(c.method, claims)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}
	return token.SignedString(c.sign)
}

func (c *Codec) parse(tokenStr string, claims jwt.Claims) (*jwt.Token, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, c.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	iat, err := token.Claims.GetIssuedAt()
	if err == nil && iat != nil && iat.Time.After(c.config.Now().Add(c.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidToken)
	}
	return token, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != c.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(c.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := c.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		if c.config.SigningMethod == MethodHS256 {
			return key, nil
		}
		return parseEdPublicKey(key)
	}

	if c.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != c.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}
	return c.verify, nil
}

func (c *Codec) stringClaim(token, name string) (string, error) {
	claims := jwt.MapClaims{}
	if _, err := c.parse(token, claims); err != nil {
		return "", err
	}
	v, ok := claims[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidToken, name)
	}
	return v, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
