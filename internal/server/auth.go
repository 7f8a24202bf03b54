package server

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/agentarena/agentarena/internal/config"
)

// ResolvedAuth holds the resolved API auth configuration.
type ResolvedAuth struct {
	Token string
}

// ResolveAuth resolves the API token from config and environment.
// Precedence: config value, then AGENTARENA_SERVER_TOKEN, then empty.
// An empty token leaves the API open, which is only acceptable on loopback.
func ResolveAuth(cfg config.ServerAuth) ResolvedAuth {
	auth := ResolvedAuth{Token: cfg.Token}
	if auth.Token == "" {
		auth.Token = os.Getenv("AGENTARENA_SERVER_TOKEN")
	}
	return auth
}

// Authorize checks a presented token against the resolved server auth.
func (a ResolvedAuth) Authorize(token string) bool {
	if a.Token == "" {
		return true
	}
	if token == "" {
		return false
	}
	return safeEqual(token, a.Token)
}

// requireAuth rejects requests that do not carry a valid bearer token.
// The token may also arrive as a "token" query parameter, which is what
// browser WebSocket clients use since they cannot set headers.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Authorize(bearerToken(r)) {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
