package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-documents/httpx"
)

// Identity is resolved upstream; this package only verifies the signed tenant token
// and exposes the tenant id to the document engine.

type ctxKey string

const (
	sessionCookieName = "session"
	tenantIDCtxKey    = ctxKey("tenantID")
)

// TenantVerifier is an optional callback to validate that a token's tenant still exists.
// Set it during app bootstrap via SetTenantVerifier. If nil, no extra verification is performed.
type TenantVerifier func(ctx context.Context, tenantID uint) bool

var verifier TenantVerifier

// SetTenantVerifier configures the global verifier used by RequireTenant.
func SetTenantVerifier(v TenantVerifier) { verifier = v }

// Secret returns SESSION_SECRET or default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

// CreateToken returns a signed token carrying the tenant id ("<id>.<sig>").
func CreateToken(tenantID uint) string {
	idStr := strconv.FormatUint(uint64(tenantID), 10)
	return idStr + "." + sign(idStr)
}

// CreateSession sets a signed cookie with the tenant id.
func CreateSession(w http.ResponseWriter, tenantID uint) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    CreateToken(tenantID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// ParseToken validates a token and returns the tenant id.
func ParseToken(token string) (uint, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return 0, false
	}
	idStr, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(sign(idStr))) {
		return 0, false
	}
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// ParseRequest reads the bearer token, falling back to the session cookie.
func ParseRequest(r *http.Request) (uint, bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return ParseToken(strings.TrimPrefix(h, "Bearer "))
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return ParseToken(c.Value)
}

func sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// WithTenantID stores tenant id in context.
func WithTenantID(ctx context.Context, tenantID uint) context.Context {
	return context.WithValue(ctx, tenantIDCtxKey, tenantID)
}

// TenantIDFromContext extracts tenant id.
func TenantIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(tenantIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// Middleware attaches tenant id to request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tid, ok := ParseRequest(r); ok {
			r = r.WithContext(WithTenantID(r.Context(), tid))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant answers 401 JSON when no verified tenant is attached to the request.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid, ok := TenantIDFromContext(r.Context())
		if !ok || (verifier != nil && !verifier(r.Context(), tid)) {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
