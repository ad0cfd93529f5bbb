package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotJWT is returned by Inspect for tokens that are not JWTs.
	ErrNotJWT = errors.New("token is not a jwt")
	// ErrSignature is returned when a verify key is configured and the token
	// signature does not match.
	ErrSignature = errors.New("token signature invalid")
)

// Config controls token inspection.
type Config struct {
	// Leeway is subtracted from the expiry before a token counts as expired.
	Leeway time.Duration
	// VerifyKey enables HS256 signature verification when non-empty.
	VerifyKey []byte
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the subset of registered claims the client cares about.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// Inspector reads token claims.
type Inspector struct {
	config Config
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 5*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Inspector{config: cfg}, nil
}

// Inspect parses token and returns its claims. It does not check expiry.
func (i *Inspector) Inspect(token string) (Claims, error) {
	if strings.Count(token, ".") != 2 {
		return Claims{}, ErrNotJWT
	}

	registered := &jwt.RegisteredClaims{}
	if len(i.config.VerifyKey) > 0 {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		)
		_, err := parser.ParseWithClaims(token, registered, func(t *jwt.Token) (interface{}, error) {
			return i.config.VerifyKey, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenMalformed) {
				return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
			}
			return Claims{}, fmt.Errorf("%w: %v", ErrSignature, err)
		}
	} else {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, registered); err != nil {
			return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
		}
	}

	out := Claims{
		Subject: registered.Subject,
		Issuer:  registered.Issuer,
	}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time
	}
	return out, nil
}

// Expired reports whether token is a JWT whose exp claim has passed. Opaque
// tokens, tokens without exp, and tokens that fail to parse report false so
// the server stays the authority on them.
func (i *Inspector) Expired(token string) bool {
	claims, err := i.Inspect(token)
	if err != nil || !claims.HasExpiry() {
		return false
	}
	return !i.config.Now().Before(claims.ExpiresAt.Add(i.config.Leeway))
}

// ExpiresIn returns the time left before token expires. ok is false when the
// token carries no readable expiry.
func (i *Inspector) ExpiresIn(token string) (time.Duration, bool) {
	claims, err := i.Inspect(token)
	if err != nil || !claims.HasExpiry() {
		return 0, false
	}
	return claims.ExpiresAt.Sub(i.config.Now()), true
}
