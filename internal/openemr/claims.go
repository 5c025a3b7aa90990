package openemr

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken is returned when an empty token string is given.
	ErrNoToken = errors.New("no token")

	// ErrInvalidToken is returned when the token cannot be parsed as a JWT.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the subset of JWT claims the status surfaces display. OpenEMR
// issues JWT access tokens; the fields here are informational only. The
// upstream verifies signatures, we never do.
type Claims struct {
	Issuer   string
	Audience string
	Subject  string
	Scope    string
	IssuedAt time.Time
	Expiry   time.Time
}

// Expired reports whether the exp claim (if present) is in the past.
func (c *Claims) Expired() bool {
	return !c.Expiry.IsZero() && time.Now().After(c.Expiry)
}

// TokenClaims decodes a JWT access token WITHOUT signature verification and
// extracts the display claims. Opaque (non-JWT) tokens yield ErrInvalidToken;
// callers should fall back to showing only the cache expiry in that case.
func TokenClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}

	if iss, ok := mapClaims["iss"].(string); ok {
		claims.Issuer = iss
	}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}
	if scope, ok := mapClaims["scope"].(string); ok {
		claims.Scope = scope
	}

	// aud may be a string or an array of strings
	switch aud := mapClaims["aud"].(type) {
	case string:
		claims.Audience = aud
	case []interface{}:
		if len(aud) > 0 {
			if s, ok := aud[0].(string); ok {
				claims.Audience = s
			}
		}
	}

	// exp and iat are NumericDate (Unix timestamps)
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.Expiry = time.Unix(int64(exp), 0)
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}

	return claims, nil
}
