package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceToken mints an HS256 bearer token for in-cluster callers such as the
// scan worker.
func ServiceToken(secret []byte, subject string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
