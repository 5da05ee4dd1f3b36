// Package guard gates protected handlers on the access decision layer.
// The evaluation itself is a pure function; the middleware form adapts it
// to HTTP without ever panicking or blanking a response.
package guard

import (
	"net/http"

	"finadmin.org/internal/access"
	"finadmin.org/internal/obs"
)

// Outcome of evaluating a requirement against a decision.
type Outcome int

const (
	// OutcomeLoading: the decision layer has not settled; render neither
	// the protected content nor the denial.
	OutcomeLoading Outcome = iota
	// OutcomeAllowed: expose the protected content.
	OutcomeAllowed
	// OutcomeDenied: expose the fallback.
	OutcomeDenied
)

// Requirement describes what a protected resource demands. A zero
// Requirement allows everyone the decision layer lets through.
type Requirement struct {
	// Role, when set, must match the session user's role exactly.
	Role string
	// Permissions to check; interpreted per RequireAll.
	Permissions []string
	// RequireAll switches the permission check from any-of to all-of.
	RequireAll bool
}

// Evaluate applies req to d. Role is checked first; permissions only
// matter when the role requirement (if any) holds.
func Evaluate(d access.Decision, req Requirement) Outcome {
	if d.Loading() {
		return OutcomeLoading
	}
	if req.Role != "" && !d.IsRole(req.Role) {
		return OutcomeDenied
	}
	if len(req.Permissions) > 0 {
		if req.RequireAll {
			if !d.HasAllPermissions(req.Permissions...) {
				return OutcomeDenied
			}
		} else if !d.HasAnyPermission(req.Permissions...) {
			return OutcomeDenied
		}
	}
	return OutcomeAllowed
}

// Middleware wraps next with req. The decision comes from the request
// context (set by the session middleware); a missing decision reads as
// fail-closed. fallback handles denials; nil means a JSON 403.
func Middleware(req Requirement, fallback http.Handler) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = http.HandlerFunc(denyJSON)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, _ := access.DecisionFromContext(r.Context())
			switch Evaluate(d, req) {
			case OutcomeLoading:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session resolving", http.StatusServiceUnavailable)
			case OutcomeDenied:
				obs.PermissionDenials.Inc()
				fallback.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func denyJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"forbidden"}`))
}
