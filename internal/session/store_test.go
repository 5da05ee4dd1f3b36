package session

import (
	"context"
	"errors"
	"testing"

	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/tokencipher"
)

type fakeAPI struct {
	loginResult  backoffice.LoginResult
	loginErr     error
	logoutErr    error
	profileUser  backoffice.User
	profileErr   error
	loginCalls   int
	logoutCalls  int
	profileCalls int
	logoutToken  string
}

func (f *fakeAPI) Login(_ context.Context, _ backoffice.Credentials) (backoffice.LoginResult, error) {
	f.loginCalls++
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.logoutCalls++
	f.logoutToken = token
	return f.logoutErr
}

func (f *fakeAPI) Profile(_ context.Context, _ string) (backoffice.User, error) {
	f.profileCalls++
	return f.profileUser, f.profileErr
}

func newTestStore(t *testing.T, api *fakeAPI) (*Store, *MemoryTokenStore, *tokencipher.Cipher) {
	t.Helper()
	cipher, err := tokencipher.New("test-secret")
	if err != nil {
		t.Fatalf("tokencipher.New: %v", err)
	}
	tokens := &MemoryTokenStore{}
	return NewStore(api, cipher, tokens, nil), tokens, cipher
}

func TestLoginEstablishesSession(t *testing.T) {
	api := &fakeAPI{loginResult: backoffice.LoginResult{
		Token: "abc123",
		User:  backoffice.User{ID: 7, Role: "admin", Email: "admin@x.com"},
	}}
	store, tokens, cipher := newTestStore(t, api)

	user, err := store.Login(context.Background(), backoffice.Credentials{Identifier: "admin@x.com", Secret: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Role != "admin" {
		t.Fatalf("unexpected user: %+v", user)
	}

	snap := store.Snapshot()
	if !snap.Authenticated || snap.Loading || snap.Token != "abc123" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	envelope, ok := tokens.Load()
	if !ok {
		t.Fatalf("expected persisted envelope")
	}
	if envelope == "abc123" {
		t.Fatalf("token must not be persisted in plaintext")
	}
	if got, err := cipher.Decrypt(envelope); err != nil || got != "abc123" {
		t.Fatalf("envelope decrypt = %q, %v", got, err)
	}
}

func TestLoginWithoutTokenFails(t *testing.T) {
	api := &fakeAPI{loginResult: backoffice.LoginResult{User: backoffice.User{ID: 7}}}
	store, tokens, _ := newTestStore(t, api)

	_, err := store.Login(context.Background(), backoffice.Credentials{Identifier: "x", Secret: "y"})
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if _, ok := tokens.Load(); ok {
		t.Fatalf("nothing must be persisted on a token-less login")
	}
	snap := store.Snapshot()
	if snap.Authenticated || snap.Loading {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestLoginErrorPropagates(t *testing.T) {
	api := &fakeAPI{loginErr: backoffice.ErrInvalidCredentials}
	store, _, _ := newTestStore(t, api)

	_, err := store.Login(context.Background(), backoffice.Credentials{Identifier: "x", Secret: "bad"})
	if !errors.Is(err, backoffice.ErrInvalidCredentials) {
		t.Fatalf("expected credential error to propagate, got %v", err)
	}
	if snap := store.Snapshot(); snap.Loading {
		t.Fatalf("loading flag must settle after a failed login")
	}
}

func TestLogoutClearsEvenWhenUpstreamFails(t *testing.T) {
	api := &fakeAPI{
		loginResult: backoffice.LoginResult{Token: "abc123", User: backoffice.User{ID: 7}},
		logoutErr:   errors.New("upstream down"),
	}
	store, tokens, _ := newTestStore(t, api)

	if _, err := store.Login(context.Background(), backoffice.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	store.Logout(context.Background())

	if api.logoutCalls != 1 || api.logoutToken != "abc123" {
		t.Fatalf("expected best-effort upstream logout with bearer, calls=%d token=%q", api.logoutCalls, api.logoutToken)
	}
	if _, ok := tokens.Load(); ok {
		t.Fatalf("token must be cleared regardless of upstream outcome")
	}
	snap := store.Snapshot()
	if snap.Authenticated || snap.User != nil || snap.Loading {
		t.Fatalf("unexpected snapshot after logout: %+v", snap)
	}
}

func TestRefreshWithoutTokenMakesNoNetworkCall(t *testing.T) {
	api := &fakeAPI{}
	store, _, _ := newTestStore(t, api)

	snap := store.Refresh(context.Background())
	if snap.Authenticated || snap.User != nil || snap.Loading {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if api.profileCalls != 0 || api.loginCalls != 0 || api.logoutCalls != 0 {
		t.Fatalf("expected zero network calls, got %+v", api)
	}
}

func TestRefreshSelfHealsOnTamperedEnvelope(t *testing.T) {
	api := &fakeAPI{}
	store, tokens, _ := newTestStore(t, api)
	_ = tokens.Save("bm90LWEtdmFsaWQtZW52ZWxvcGU=")

	snap := store.Refresh(context.Background())
	if snap.Authenticated || snap.User != nil || snap.Loading {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, ok := tokens.Load(); ok {
		t.Fatalf("tampered envelope must be removed")
	}
	if api.profileCalls != 0 {
		t.Fatalf("no profile call should follow a failed decrypt")
	}
}

func TestRefreshSelfHealsOnRejectedToken(t *testing.T) {
	api := &fakeAPI{
		loginResult: backoffice.LoginResult{Token: "abc123", User: backoffice.User{ID: 7}},
		profileErr:  backoffice.ErrSessionInvalid,
	}
	store, tokens, _ := newTestStore(t, api)
	if _, err := store.Login(context.Background(), backoffice.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	snap := store.Refresh(context.Background())
	if snap.Authenticated || snap.User != nil {
		t.Fatalf("expected logged-out state, got %+v", snap)
	}
	if _, ok := tokens.Load(); ok {
		t.Fatalf("cookie must be removed after a rejected refresh")
	}

	// Idempotent: a second refresh settles the same way, with no network.
	calls := api.profileCalls
	snap = store.Refresh(context.Background())
	if snap.Authenticated || api.profileCalls != calls {
		t.Fatalf("second refresh must be a no-op, snap=%+v calls=%d", snap, api.profileCalls)
	}
}

func TestRefreshReplacesUserWholesale(t *testing.T) {
	api := &fakeAPI{
		loginResult: backoffice.LoginResult{Token: "abc123", User: backoffice.User{ID: 7, Name: "Old", Role: "admin"}},
		profileUser: backoffice.User{ID: 7, Name: "New", Role: "reviewer", Phone: "123"},
	}
	store, _, _ := newTestStore(t, api)
	if _, err := store.Login(context.Background(), backoffice.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	snap := store.Refresh(context.Background())
	if !snap.Authenticated || snap.User.Name != "New" || snap.User.Role != "reviewer" {
		t.Fatalf("refresh must replace the user wholesale, got %+v", snap.User)
	}
}

func TestSubscribersObserveTransitions(t *testing.T) {
	api := &fakeAPI{loginResult: backoffice.LoginResult{Token: "abc123", User: backoffice.User{ID: 7}}}
	store, _, _ := newTestStore(t, api)

	var snaps []Snapshot
	store.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	if _, err := store.Login(context.Background(), backoffice.Credentials{}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	store.Logout(context.Background())

	if len(snaps) == 0 {
		t.Fatalf("expected subscriber notifications")
	}
	last := snaps[len(snaps)-1]
	if last.Authenticated || last.User != nil {
		t.Fatalf("final notification must be the cleared state, got %+v", last)
	}
}
