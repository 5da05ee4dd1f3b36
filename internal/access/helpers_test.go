package access

import (
	"context"
	"testing"

	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/session"
	"finadmin.org/internal/tokencipher"
)

type sessionAPI struct{}

func (sessionAPI) Login(_ context.Context, _ backoffice.Credentials) (backoffice.LoginResult, error) {
	return backoffice.LoginResult{
		Token: "abc123",
		User:  backoffice.User{ID: 7, Role: "admin", Email: "admin@x.com"},
	}, nil
}

func (sessionAPI) Logout(_ context.Context, _ string) error { return nil }

func (sessionAPI) Profile(_ context.Context, _ string) (backoffice.User, error) {
	return backoffice.User{ID: 7, Role: "admin", Email: "admin@x.com"}, nil
}

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	cipher, err := tokencipher.New("test-secret")
	if err != nil {
		t.Fatalf("tokencipher.New: %v", err)
	}
	return session.NewStore(sessionAPI{}, cipher, &session.MemoryTokenStore{}, nil)
}
