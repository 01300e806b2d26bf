// ABOUTME: HTTP middleware for authenticating API endpoints
// ABOUTME: Accepts the same credentials as the gRPC interceptors and adds AuthContext to the request

package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HTTPAuthMiddleware creates an HTTP middleware that authenticates requests
// using the same WithAuth/FromContext pattern as the gRPC interceptors.
func HTTPAuthMiddleware(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := Credentials{
				Authorization: r.Header.Get("Authorization"),
				SSH:           ExtractSSHAuthFromHeader(r.Header),
				Identity:      r.Header.Get(IdentityHeader),
			}
			authCtx, err := a.Authenticate(creds)
			if err != nil {
				a.logger.Warn("auth failure",
					"reason", failureReason(creds),
					"error", err.Error(),
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				writeUnauthorized(w, strings.TrimPrefix(err.Error(), ErrUnauthenticated.Error()+": "))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  "unauthenticated",
	})
}
