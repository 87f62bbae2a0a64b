// Package service contains the push reconciler and token authentication.
package service

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/opentutorials-org/otu-sync/internal/errs"
)

// TokenAuth issues and verifies HS256 access tokens whose subject is the user id.
type TokenAuth struct {
	signKey   []byte
	accessTTL time.Duration
}

// NewTokenAuth constructs TokenAuth. A non-positive ttl defaults to one hour.
func NewTokenAuth(signKey []byte, accessTTL time.Duration) *TokenAuth {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &TokenAuth{signKey: signKey, accessTTL: accessTTL}
}

// Issue creates a signed HS256 JWT for the given subject.
func (a *TokenAuth) Issue(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, errors.New("validation: empty userID")
	}
	now := time.Now()
	exp := now.Add(a.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(a.signKey)
	return signed, exp, err
}

// Verify checks signature and time claims and returns the subject as a user id.
// Every failure wraps errs.ErrUnauthorized.
func (a *TokenAuth) Verify(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.signKey, nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.Join(errs.ErrUnauthorized, errors.New("invalid token"))
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.Join(errs.ErrUnauthorized, errors.New("bad subject"))
	}
	return id, nil
}
