package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthManager exchanges the static admin API key for short-lived HS256
// session tokens, so the key itself is only ever sent to /login.
type AuthManager struct {
	apiKey []byte
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(apiKey, jwtSecret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AuthManager{apiKey: []byte(apiKey), secret: []byte(jwtSecret), ttl: ttl}
}

// Enabled reports whether the admin surface is configured at all.
func (a *AuthManager) Enabled() bool {
	return len(a.apiKey) > 0 && len(a.secret) > 0
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Exchange validates the presented API key and mints a session token.
func (a *AuthManager) Exchange(presented string) (string, error) {
	if !a.Enabled() {
		return "", errors.New("admin auth not configured")
	}
	if subtle.ConstantTimeCompare([]byte(presented), a.apiKey) != 1 {
		return "", errors.New("bad api key")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   "admin",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseFromRequest validates the bearer token on an admin request.
func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" || !strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return nil, errors.New("missing token")
	}
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(strings.TrimSpace(hdr[7:]), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
