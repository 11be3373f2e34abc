package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = 30 * time.Minute

// CreateToken issues a signed HS256 access token for the user. The subject
// claim carries the user's email.
func (m *Manager) CreateToken(email string) (token string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(m.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifyToken validates an access token and returns the subject email.
// Any parse, signature, or expiry failure maps to ErrInvalidToken.
func (m *Manager) VerifyToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
