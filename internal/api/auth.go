// Package api implements the HTTP boundary of the routing service: request
// decoding and validation, solve orchestration, solve event streaming and the
// admin endpoints.
package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	Tenant string
	Role   string // admin, dispatcher, viewer
}

// getPrincipal extracts tenant and role from the X-Tenant-Id and X-Role
// headers set by the fronting gateway.
func (s *Server) getPrincipal(r *http.Request) Principal {
	tenant := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
	if tenant == "" {
		tenant = "t_demo"
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanSolve reports whether the principal may submit optimize requests.
func (p Principal) CanSolve() bool { return p.IsAdmin() || p.Role == "dispatcher" }
