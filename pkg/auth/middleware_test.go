package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testMiddleware() *Middleware {
	return NewMiddleware(Config{
		JWTSecret:   []byte("test-secret"),
		BypassPaths: []string{"/health", "/metrics"},
	})
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestBypassPaths(t *testing.T) {
	m := testMiddleware()
	for _, path := range []string{"/health", "/metrics"} {
		called := false
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		m.Authenticate(okHandler(&called)).ServeHTTP(rec, req)
		if !called || rec.Code != http.StatusOK {
			t.Fatalf("%s should bypass auth: called=%v code=%d", path, called, rec.Code)
		}
	}
}

func TestValidToken(t *testing.T) {
	m := testMiddleware()
	token, err := m.GenerateJWT("u1", "dev-1", []string{"user"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var claims *Claims
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/detect", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected: %d", rec.Code)
	}
	if claims == nil || claims.UserID != "u1" || claims.DeviceID != "dev-1" {
		t.Fatalf("claims not propagated: %+v", claims)
	}
}

func TestRejectedRequests(t *testing.T) {
	m := testMiddleware()
	other := NewMiddleware(Config{JWTSecret: []byte("other-secret")})
	wrongKey, _ := other.GenerateJWT("u1", "d1", nil)

	expired := NewMiddleware(Config{JWTSecret: []byte("test-secret"), TokenDuration: -time.Hour})
	expiredToken, _ := expired.GenerateJWT("u1", "d1", nil)

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed", "Bearer not.a.jwt"},
		{"wrong key", "Bearer " + wrongKey},
		{"expired", "Bearer " + expiredToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodPost, "/detect", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			m.Authenticate(okHandler(&called)).ServeHTTP(rec, req)
			if called || rec.Code != http.StatusUnauthorized {
				t.Fatalf("request not rejected: called=%v code=%d", called, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("error not JSON: %q", ct)
			}
		})
	}
}
