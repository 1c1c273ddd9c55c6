package api

import (
    "net/http"
    "strings"

    "eventrelay/internal/auth"
)

// getPrincipal extracts the caller's role for admin endpoints.
// - If Authorization: Bearer is present, uses the configured verifier
//   (dev/hmac/jwks).
// - Else falls back to the X-Role header for dev setups.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
    authz := r.Header.Get("Authorization")
    if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
        tok := strings.TrimSpace(authz[len("Bearer "):])
        if pr, err := s.Auth.Verify(tok); err == nil {
            return pr
        }
    }
    role := r.Header.Get("X-Role")
    if role == "" {
        role = "admin"
    }
    return auth.Principal{Role: strings.ToLower(role)}
}
