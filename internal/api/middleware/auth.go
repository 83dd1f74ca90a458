package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wsgraph/engine/internal/api/types"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

type subjectKeyType string

const SubjectKey subjectKeyType = "subject"

// Auth validates an HMAC-signed Bearer JWT and adds its subject to context.
func Auth(hmacSecret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	unauthorized := func(w http.ResponseWriter) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		types.WriteError(w, appErr.New(appErr.CodeUnauthorized, "missing or invalid bearer token"))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if len(ah) < len("Bearer ") || !strings.EqualFold(ah[:len("Bearer ")], "bearer ") {
				unauthorized(w)
				return
			}
			var claims jwt.RegisteredClaims
			token, err := parser.ParseWithClaims(strings.TrimSpace(ah[len("Bearer "):]), &claims,
				func(*jwt.Token) (any, error) { return hmacSecret, nil })
			if err != nil || !token.Valid {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject returns the authenticated token subject, if any.
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(SubjectKey).(string); ok {
		return s
	}
	return ""
}
