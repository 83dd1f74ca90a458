package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "ci-run-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "ci-run-42", seen)
	assert.Equal(t, "ci-run-42", rr.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "has space")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.NotEqual(t, "has space", seen)
	assert.Len(t, seen, 36)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rl.Sweep(time.Now().Add(visitorIdleTTL + time.Minute))
	assert.Empty(t, rl.visitors)
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies("10.0.0.0/8, 192.168.1.1")
	require.NoError(t, err)
	behindProxy := NewRateLimiter(1, 1, TrustProxies(proxies...))
	direct := NewRateLimiter(1, 1)

	tests := []struct {
		name   string
		rl     *RateLimiter
		remote string
		xff    string
		want   string
	}{
		{"direct ignores header", direct, "203.0.113.9:4000", "198.51.100.1", "203.0.113.9"},
		{"untrusted peer ignores header", behindProxy, "203.0.113.9:4000", "198.51.100.1", "203.0.113.9"},
		{"trusted peer uses header", behindProxy, "10.1.2.3:4000", "198.51.100.1", "198.51.100.1"},
		{"spoofed leftmost hop skipped", behindProxy, "10.1.2.3:4000", "1.2.3.4, 198.51.100.1", "198.51.100.1"},
		{"trusted hops skipped", behindProxy, "10.1.2.3:4000", "198.51.100.1, 192.168.1.1, 10.9.9.9", "198.51.100.1"},
		{"garbage hop falls back to peer", behindProxy, "10.1.2.3:4000", "not-an-ip", "10.1.2.3"},
		{"only trusted hops", behindProxy, "10.1.2.3:4000", "10.0.0.5", "10.1.2.3"},
		{"no header", behindProxy, "10.1.2.3:4000", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, tt.rl.clientIP(req))
		})
	}
}

func TestRateLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	h := NewRateLimiter(1, 1).Middleware(okHandler)

	codes := make([]int, 0, 3)
	for _, hop := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", hop)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies(" 10.0.0.0/8 ,,::1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
	assert.Equal(t, "::1/128", got[1].String())

	empty, err := ParseTrustedProxies("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseTrustedProxies("10.0.0.0/99")
	assert.Error(t, err)
	_, err = ParseTrustedProxies("proxy.local")
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	secret := []byte("s3cret")
	var subject string
	h := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	sign := func(method jwt.SigningMethod, key []byte) string {
		tok, err := jwt.NewWithClaims(method, jwt.RegisteredClaims{
			Subject:   "ci-bot",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + sign(jwt.SigningMethodHS256, secret), http.StatusNoContent},
		{"lowercase scheme", "bearer " + sign(jwt.SigningMethodHS512, secret), http.StatusNoContent},
		{"wrong key", "Bearer " + sign(jwt.SigningMethodHS256, []byte("other")), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "ci-bot", subject)
			} else {
				assert.True(t, strings.Contains(rr.Body.String(), `"errorCode":"UNAUTHORIZED"`))
			}
		})
	}
}

func TestRecoveryWritesInternalError(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"errorCode":"INTERNAL_ERROR","message":"internal server error"}`, rr.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	rr := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/v1/ingestions", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
