// Package identity verifies identity-provider tokens presented by clients.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Claims is the token payload accepted by the Verifier.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewVerifier constructs a verifier. An empty secret yields a verifier
// that rejects every token.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), leeway: 30 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Enabled reports whether tokens can be verified at all.
func (v *Verifier) Enabled() bool { return len(v.secret) > 0 }

// Verify parses and validates a raw token.
func (v *Verifier) Verify(_ context.Context, raw string) (Identity, error) {
	if !v.Enabled() {
		return Identity{}, ErrDisabled
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := v.validate(&claims); err != nil {
		return Identity{}, err
	}
	return Identity{
		Subject: claims.Subject,
		Email:   strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:    strings.TrimSpace(claims.Name),
		Picture: claims.Picture,
	}, nil
}

func (v *Verifier) validate(c *Claims) error {
	now := v.now()
	if c.ExpiresAt == nil || now.After(c.ExpiresAt.Add(v.leeway)) {
		return fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	if c.NotBefore != nil && now.Add(v.leeway).Before(c.NotBefore.Time) {
		return fmt.Errorf("%w: not yet valid", ErrInvalidToken)
	}
	if v.issuer != "" && c.Issuer != v.issuer {
		return fmt.Errorf("%w: issuer %q", ErrInvalidToken, c.Issuer)
	}
	if v.audience != "" && !c.VerifyAudience(v.audience, true) {
		return fmt.Errorf("%w: audience", ErrInvalidToken)
	}
	if c.EmailVerified != nil && !*c.EmailVerified {
		return ErrUnverifiedEmail
	}
	return nil
}

// Issue signs a token for id valid for ttl. It is used by tests and the
// local seeding tool.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", ErrDisabled
	}
	now := v.now()
	claims := Claims{
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// FromHeader extracts the token of an "Authorization: Bearer" header value.
func FromHeader(h string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// IsAuthError reports whether err means the caller is not authenticated.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrDisabled) || errors.Is(err, ErrUnverifiedEmail)
}
