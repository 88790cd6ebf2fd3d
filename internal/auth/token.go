package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

const defaultTokenTTL = time.Hour

// ErrNoSecret is returned when the API is enabled without a signing secret.
var ErrNoSecret = errors.New("jwt secret is empty")

// Claims are the claims of an API token. The role is informational;
// the API middleware reloads the user on every request.
type Claims struct {
	jwt.RegisteredClaims

	Role     rbac.Role `json:"role"`
	Barangay string    `json:"barangay,omitempty"`
}

// RoleName implements rbac.Subject.
func (c *Claims) RoleName() rbac.Role {
	if c == nil {
		return ""
	}

	return c.Role
}

// BarangayName implements rbac.Subject.
func (c *Claims) BarangayName() string {
	if c == nil {
		return ""
	}

	return c.Barangay
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return id, nil
}

// TokenIssuer signs and verifies HS256 API tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer builds an issuer from the API configuration.
func NewTokenIssuer(cfg config.API) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for u and its expiry.
func (t *TokenIssuer) Issue(u *models.User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:     u.Role,
		Barangay: u.Barangay,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Parse verifies signature, issuer and lifetime of raw.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}

	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := new(Claims)

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}
