package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware provides HTTP middleware for bearer-token validation.
type Middleware struct {
	verifier Verifier
	skipper  Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(verifier Verifier, skipper Skipper) Middleware {
	return Middleware{verifier: verifier, skipper: skipper}
}

// PublicPaths returns a Skipper letting the listed paths and CORS preflights through.
func PublicPaths(paths ...string) Skipper {
	allowed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		allowed[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		if r.Method == http.MethodOptions {
			return true
		}
		_, ok := allowed[r.URL.Path]
		return ok
	}
}

// Wrap wraps an http.Handler with authentication.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper != nil && m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.parseRequest(r)
		if err != nil {
			log.Tracef("[auth middleware] unauthorized %s %s: %s", r.Method, r.URL.Path, err)
			message := "invalid token"
			if errors.Is(err, ErrMissingToken) {
				message = "no token provided"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "message": message})
			return
		}
		ctx := WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) parseRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return m.verifier.Verify(token)
}
