package api

import (
	"crypto/subtle"
	"net/http"

	"evalreport-go/internal/types"
)

// SecretHeader carries the shared admin or superadmin secret.
const SecretHeader = "X-Admin-Secret"

// roleOf resolves the caller's role from the shared secret. Unconfigured
// secrets never match.
func (s *Server) roleOf(r *http.Request) types.ViewerRole {
	got := r.Header.Get(SecretHeader)
	if got == "" {
		return types.RoleGuest
	}
	if secretEqual(got, s.opts.SuperAdminSecret) {
		return types.RoleSuperAdmin
	}
	if secretEqual(got, s.opts.AdminSecret) {
		return types.RoleAdmin
	}
	return types.RoleGuest
}

func secretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// requireRole rejects callers below min before the handler runs.
func (s *Server) requireRole(min types.ViewerRole, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.roleOf(r) < min {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "wrong or missing " + SecretHeader})
			return
		}
		next(w, r)
	}
}
