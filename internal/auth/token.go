package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/healthcompanion/companion/internal/shared"
)

// DefaultTokenTTL is the bearer token lifetime.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims binds an account identity to a bearer token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of t reading time from now.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *t
	clone.now = now
	return &clone
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue mints a token for the account.
func (t *TokenIssuer) Issue(accountID, email string) (string, error) {
	if accountID == "" {
		return "", errors.New("auth: issue token: empty account id")
	}
	now := t.now()
	claims := Claims{
		UserID: accountID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries. Any failure is
// reported as shared.ErrTokenInvalid.
func (t *TokenIssuer) Verify(tokenString string) (shared.Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return shared.Identity{}, shared.ErrTokenMissing
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return shared.Identity{}, fmt.Errorf("%w: %v", shared.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == "" || claims.Subject != claims.UserID {
		return shared.Identity{}, shared.ErrTokenInvalid
	}
	return shared.Identity{AccountID: claims.UserID, Email: claims.Email}, nil
}
