// Package access is the read-only decision layer combining the session
// user with the resolved permission set. Every predicate fails closed:
// while loading, or with no user, nothing is granted.
package access

import (
	"finadmin.org/internal/backoffice"
)

// Decision answers permission queries for one session state. It is a
// value: build a new one whenever the session or the catalog changes.
type Decision struct {
	user    *backoffice.User
	perms   map[string]struct{}
	ordered []string
	loading bool
}

// NewDecision builds a decision from the session user, the resolved
// permission set and the loading flag.
func NewDecision(user *backoffice.User, perms []string, loading bool) Decision {
	set := make(map[string]struct{}, len(perms))
	ordered := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, dup := set[p]; dup {
			continue
		}
		set[p] = struct{}{}
		ordered = append(ordered, p)
	}
	return Decision{user: user, perms: set, ordered: ordered, loading: loading}
}

// Denied is the fail-closed decision: no user, no permissions, settled.
func Denied() Decision {
	return NewDecision(nil, nil, false)
}

// Loading reports whether the decision is still resolving; callers must
// render neither protected content nor a denial while it is true.
func (d Decision) Loading() bool { return d.loading }

// User returns the session user, or nil when logged out.
func (d Decision) User() *backoffice.User { return d.user }

// Permissions returns the resolved permission set in catalog order.
func (d Decision) Permissions() []string {
	out := make([]string, len(d.ordered))
	copy(out, d.ordered)
	return out
}

// HasPermission reports whether p is in the resolved set.
func (d Decision) HasPermission(p string) bool {
	if !d.ready() {
		return false
	}
	_, ok := d.perms[p]
	return ok
}

// HasAnyPermission reports whether at least one of ps is granted.
// An empty query is vacuously true.
func (d Decision) HasAnyPermission(ps ...string) bool {
	if !d.ready() {
		return false
	}
	if len(ps) == 0 {
		return true
	}
	for _, p := range ps {
		if _, ok := d.perms[p]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of ps is granted.
// An empty query is vacuously true.
func (d Decision) HasAllPermissions(ps ...string) bool {
	if !d.ready() {
		return false
	}
	for _, p := range ps {
		if _, ok := d.perms[p]; !ok {
			return false
		}
	}
	return true
}

// IsRole reports an exact, case-sensitive match on the user's role key.
func (d Decision) IsRole(roleKey string) bool {
	if !d.ready() {
		return false
	}
	return d.user.Role == roleKey
}

func (d Decision) ready() bool {
	return !d.loading && d.user != nil
}
