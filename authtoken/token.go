// Package authtoken mints and verifies HS256 JWTs for wisp handlers and
// middlewares that need a bearer-token identity check. wisp has no session
// store or database of its own, so there is no refresh-token rotation or
// JTI revocation list here — just a pure (secret, claims) -> token and
// (secret, token) -> claims pair.
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the stateless authorization payload carried in a minted token.
type Claims struct {
	Subject     string   `json:"sub,omitempty"`
	Email       string   `json:"email,omitempty"`
	Rank        string   `json:"rank,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies tokens signed with a single HS256 secret.
type Issuer struct {
	secret []byte
	name   string
}

// New builds an Issuer. name is stamped as the token's "iss" claim.
func New(secret, name string) *Issuer {
	return &Issuer{secret: []byte(secret), name: name}
}

// Mint signs a token for subject, carrying the given claims and expiring
// after ttl. A fresh JTI is stamped on every call so two tokens minted for
// the same subject at the same moment never collide.
func (iss *Issuer) Mint(subject, email, rank string, permissions []string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Subject:     subject,
		Email:       email,
		Rank:        rank,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    iss.name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(iss.secret)
	if err != nil {
		return "", fmt.Errorf("authtoken: sign: %w", err)
	}
	return signed, nil
}

// ErrInvalidToken covers a bad signature, malformed claims, or an
// unexpected signing algorithm.
var ErrInvalidToken = errors.New("authtoken: invalid token")

// Verify validates tokenString's signature and expiry and returns its
// claims. The signing method is checked explicitly so a token crafted with
// "alg": "none" or an RSA/EC key is rejected even if jwt-go would otherwise
// accept it.
func (iss *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return iss.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
