package access

import (
	"context"
	"testing"

	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/roles"
	"finadmin.org/internal/session"
)

type catalogAPI struct {
	entries []backoffice.RoleEntry
	calls   int
}

func (c *catalogAPI) Roles(_ context.Context, _ string) ([]backoffice.RoleEntry, error) {
	c.calls++
	return c.entries, nil
}

func adminCatalog() *catalogAPI {
	return &catalogAPI{entries: []backoffice.RoleEntry{
		{Key: "admin", Permissions: []string{"view_users", "edit_users"}},
	}}
}

func TestTrackerStartsUninitialized(t *testing.T) {
	tr := NewTracker(roles.NewResolver(adminCatalog(), nil, nil))
	if tr.State() != StateUninitialized {
		t.Fatalf("unexpected initial state: %v", tr.State())
	}
	d := tr.Decision()
	if !d.Loading() || d.HasPermission("view_users") {
		t.Fatalf("initial decision must be loading and fail closed")
	}
}

func TestTrackerResolvesOnLogin(t *testing.T) {
	api := adminCatalog()
	tr := NewTracker(roles.NewResolver(api, nil, nil))
	user := &backoffice.User{ID: 7, Role: "admin"}

	tr.Apply(context.Background(), session.Snapshot{User: user, Token: "abc123", Authenticated: true})

	if tr.State() != StateReady {
		t.Fatalf("expected ready state, got %v", tr.State())
	}
	d := tr.Decision()
	if !d.HasPermission("edit_users") || d.HasPermission("delete_users") {
		t.Fatalf("unexpected decision: %v", d.Permissions())
	}
	if api.calls != 1 {
		t.Fatalf("expected one catalog fetch, got %d", api.calls)
	}
}

func TestTrackerAnswersRepeatedRequestsFromCache(t *testing.T) {
	api := adminCatalog()
	resolver := roles.NewResolver(api, nil, nil)
	snap := session.Snapshot{User: &backoffice.User{ID: 7, Role: "admin"}, Token: "abc123", Authenticated: true}
	ctx := context.Background()

	// One tracker per request, one resolver per process.
	for i := 0; i < 3; i++ {
		tr := NewTracker(resolver)
		tr.Apply(ctx, snap)
		if !tr.Decision().HasPermission("view_users") {
			t.Fatalf("request %d: cached catalog must still resolve permissions", i)
		}
	}

	if api.calls != 1 {
		t.Fatalf("catalog fetched %d times for one session, want 1", api.calls)
	}
}

func TestTrackerClearsOnLogout(t *testing.T) {
	tr := NewTracker(roles.NewResolver(adminCatalog(), nil, nil))
	user := &backoffice.User{ID: 7, Role: "admin"}
	ctx := context.Background()

	tr.Apply(ctx, session.Snapshot{User: user, Token: "abc123", Authenticated: true})
	tr.Apply(ctx, session.Snapshot{})

	if tr.State() != StateCleared {
		t.Fatalf("expected cleared state, got %v", tr.State())
	}
	d := tr.Decision()
	if d.User() != nil || d.HasPermission("view_users") || d.Loading() {
		t.Fatalf("cleared decision must be settled and fail closed")
	}
}

func TestTrackerRefetchesPerLogin(t *testing.T) {
	api := adminCatalog()
	tr := NewTracker(roles.NewResolver(api, nil, nil))
	ctx := context.Background()

	tr.Apply(ctx, session.Snapshot{User: &backoffice.User{ID: 7, Role: "admin"}, Token: "t1", Authenticated: true})
	tr.Apply(ctx, session.Snapshot{})

	// A different user logs in; the catalog must be fetched again, not
	// answered from the previous session's cache.
	api.entries = []backoffice.RoleEntry{{Key: "reviewer", Permissions: []string{"view_users"}}}
	tr.Apply(ctx, session.Snapshot{User: &backoffice.User{ID: 8, Role: "reviewer"}, Token: "t2", Authenticated: true})

	if api.calls != 2 {
		t.Fatalf("expected a fresh fetch per login, got %d calls", api.calls)
	}
	d := tr.Decision()
	if !d.HasPermission("view_users") || d.HasPermission("edit_users") {
		t.Fatalf("unexpected permissions after role change: %v", d.Permissions())
	}
}

func TestTrackerDrivenBySubscription(t *testing.T) {
	tr := NewTracker(roles.NewResolver(adminCatalog(), nil, nil))

	store := newSessionStore(t)
	tr.Bind(context.Background(), store)

	if _, err := store.Login(context.Background(), backoffice.Credentials{Identifier: "admin@x.com", Secret: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tr.State() != StateReady || !tr.Decision().HasPermission("view_users") {
		t.Fatalf("tracker must follow session transitions, state=%v", tr.State())
	}

	store.Logout(context.Background())
	if tr.State() != StateCleared {
		t.Fatalf("expected cleared after logout, got %v", tr.State())
	}
}
