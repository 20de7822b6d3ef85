// Package auth provides JWT bearer authentication for the pipeline HTTP
// surface.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds authentication configuration.
type Config struct {
	JWTSecret     []byte
	BypassPaths   []string
	TokenDuration time.Duration
}

// Claims represents JWT claims carried by pipeline tokens.
type Claims struct {
	UserID   string   `json:"user_id"`
	DeviceID string   `json:"device_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// ctxKey is a private type to avoid context key collisions.
type ctxKey string

var claimsCtxKey ctxKey = "claims"

// ClaimsFromContext extracts claims from a request context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}

// Middleware validates bearer tokens on every request outside the bypass
// list.
type Middleware struct {
	config Config
}

// NewMiddleware creates an authentication middleware.
func NewMiddleware(config Config) *Middleware {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	return &Middleware{config: config}
}

// Authenticate validates the Authorization bearer token and stores its
// claims on the request context. Bypass paths (health, metrics) pass
// through untouched.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, path := range m.config.BypassPaths {
			if strings.HasPrefix(r.URL.Path, path) {
				next.ServeHTTP(w, r)
				return
			}
		}

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			if strings.HasPrefix(authHeader, "Bearer ") {
				token := strings.TrimPrefix(authHeader, "Bearer ")
				if claims, err := m.validateJWT(token); err == nil {
					ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "unauthorized",
			"message": "valid bearer token required",
		})
	})
}

func (m *Middleware) validateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.config.JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// GenerateJWT issues a signed token, used by tests and provisioning tools.
func (m *Middleware) GenerateJWT(userID, deviceID string, roles []string) (string, error) {
	claims := Claims{
		UserID:   userID,
		DeviceID: deviceID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "riskgate",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.JWTSecret)
}
