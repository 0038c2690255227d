package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"telegram-notify-relay/internal/config"
)

// AdminAuth issues and verifies short-lived bearer tokens for the admin API.
// The admin web UI is an external collaborator; this is its backing auth.
type AdminAuth struct {
	cfg *config.AdminConfig
}

func NewAdminAuth(cfg *config.AdminConfig) *AdminAuth {
	return &AdminAuth{cfg: cfg}
}

// Login checks the configured credentials and returns a signed token.
// Comparison is constant-time so probing doesn't leak the username either.
func (a *AdminAuth) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	if !userOK || !passOK {
		return "", jwt.ErrTokenUnverifiable
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
	})
	return token.SignedString([]byte(a.cfg.JWTKey))
}

func (a *AdminAuth) verify(tokenString string) bool {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.cfg.JWTKey), nil
	})
	return err == nil && token.Valid
}

// Require guards admin routes with a bearer token check.
func (a *AdminAuth) Require() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(auth, "Bearer ")
			if !found || !a.verify(token) {
				writeError(w, http.StatusUnauthorized, "invalid or missing admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
