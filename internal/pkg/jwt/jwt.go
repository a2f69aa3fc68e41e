// Package jwt issues and verifies the HS256 tokens API clients present.
package jwt

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "trendjack"

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid token")

var key atomic.Pointer[[]byte]

func init() { SetSecret("trendjack-secret-change-me") }

// SetSecret replaces the signing key. Blank secrets are ignored.
func SetSecret(s string) {
	if s == "" {
		return
	}
	b := []byte(s)
	key.Store(&b)
}

func signingKey() []byte { return *key.Load() }

// Claims carries the client name alongside the registered claims.
type Claims struct {
	Client string `json:"client"`
	jwtlib.RegisteredClaims
}

// Sign issues a token for client valid for ttl.
func Sign(client string, ttl time.Duration) (string, error) {
	issued := time.Now()
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, Claims{
		Client: client,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   client,
			IssuedAt:  jwtlib.NewNumericDate(issued),
			ExpiresAt: jwtlib.NewNumericDate(issued.Add(ttl)),
		},
	}).SignedString(signingKey())
}

var parser = jwtlib.NewParser(
	jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
	jwtlib.WithIssuer(issuer),
	jwtlib.WithExpirationRequired(),
)

// Parse verifies raw and returns its claims.
func Parse(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwtlib.Token) (interface{}, error) {
		return signingKey(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
