// Package session is the single source of truth for "who is logged in".
// It owns the encrypted token envelope, the user snapshot and the only
// code paths allowed to mutate either.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/obs"
	"finadmin.org/internal/tokencipher"
)

// ErrNoToken indicates the upstream answered a nominally successful login
// without a bearer token. No session state is established.
var ErrNoToken = errors.New("session: login response carried no token")

const defaultCallTimeout = 10 * time.Second

// TokenStore persists the encrypted token envelope between operations.
type TokenStore interface {
	// Load returns the stored envelope, reporting false when absent.
	Load() (string, bool)
	// Save replaces the stored envelope.
	Save(envelope string) error
	// Clear removes the stored envelope. Must be idempotent.
	Clear()
}

// API is the slice of the upstream client the store needs.
type API interface {
	Login(ctx context.Context, creds backoffice.Credentials) (backoffice.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (backoffice.User, error)
}

// Snapshot is an immutable view of the session state. Token carries the
// decrypted bearer token while a user is present so downstream layers can
// call the upstream on the session's behalf; it is never persisted in
// this form.
type Snapshot struct {
	User          *backoffice.User
	Token         string
	Authenticated bool
	Loading       bool
}

// Store manages the session lifecycle. Transitions are last-write-wins;
// overlapping calls settle on whichever response lands last, and Refresh
// is safe to invoke repeatedly.
type Store struct {
	api     API
	cipher  *tokencipher.Cipher
	tokens  TokenStore
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	user    *backoffice.User
	token   string
	loading bool
	subs    []func(Snapshot)
}

// NewStore wires a session store to its collaborators.
func NewStore(api API, cipher *tokencipher.Cipher, tokens TokenStore, log *slog.Logger) *Store {
	if log == nil {
		log = obs.Discard()
	}
	return &Store{
		api:     api,
		cipher:  cipher,
		tokens:  tokens,
		log:     log,
		timeout: defaultCallTimeout,
	}
}

// SetCallTimeout bounds each upstream call; a hung upstream must never
// leave the session loading forever.
func (s *Store) SetCallTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Subscribe registers fn to run after every terminal state transition.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns the current session view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Login authenticates against the upstream and establishes the session.
// Credential and transport errors propagate to the caller; the previous
// session state is left untouched on failure.
func (s *Store) Login(ctx context.Context, creds backoffice.Credentials) (*backoffice.User, error) {
	s.setLoading(true)
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		s.settle()
		return nil, err
	}
	if res.Token == "" {
		s.settle()
		return nil, ErrNoToken
	}

	envelope, err := s.cipher.Encrypt(res.Token)
	if err != nil {
		// Open policy question resolved: never persist a plaintext token.
		s.settle()
		s.log.ErrorContext(ctx, "token encryption failed, login rejected", "err", err)
		return nil, fmt.Errorf("session: seal token: %w", err)
	}
	if err := s.tokens.Save(envelope); err != nil {
		s.settle()
		return nil, fmt.Errorf("session: persist token: %w", err)
	}

	user := res.User
	s.establish(&user, res.Token)
	obs.SessionsEstablished.Inc()
	s.log.InfoContext(ctx, "session established", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// Logout ends the session. The upstream notification is best-effort; the
// local token and user are cleared no matter what.
func (s *Store) Logout(ctx context.Context) {
	s.setLoading(true)
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if envelope, ok := s.tokens.Load(); ok {
		if token, err := s.cipher.Decrypt(envelope); err == nil {
			if err := s.api.Logout(ctx, token); err != nil {
				s.log.WarnContext(ctx, "upstream logout failed", "err", err)
			}
		}
	}
	s.clear()
}

// Refresh revalidates the persisted token against the upstream profile
// endpoint. With no stored envelope it settles into a logged-out state
// without any network call. Every failure path clears the token and the
// user; the caller only ever observes presence or absence of a session.
func (s *Store) Refresh(ctx context.Context) Snapshot {
	envelope, ok := s.tokens.Load()
	if !ok {
		s.clear()
		return s.Snapshot()
	}

	s.setLoading(true)
	token, err := s.cipher.Decrypt(envelope)
	if err != nil {
		s.heal(ctx, "decrypt", err)
		return s.Snapshot()
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	user, err := s.api.Profile(ctx, token)
	if err != nil {
		s.heal(ctx, "profile", err)
		return s.Snapshot()
	}

	s.establish(&user, token)
	return s.Snapshot()
}

// heal converts an invalid session into a clean logged-out state.
func (s *Store) heal(ctx context.Context, reason string, err error) {
	obs.RefreshSelfHeals.WithLabelValues(reason).Inc()
	s.log.InfoContext(ctx, "session self-heal", "reason", reason, "err", err)
	s.clear()
}

func (s *Store) establish(user *backoffice.User, token string) {
	s.mu.Lock()
	s.user = user
	s.token = token
	s.loading = false
	snap, subs := s.snapshotLocked(), s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

func (s *Store) clear() {
	s.tokens.Clear()
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.loading = false
	snap, subs := s.snapshotLocked(), s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

// settle ends a loading phase without touching the user or the token.
func (s *Store) settle() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	snap, subs := s.snapshotLocked(), s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:          s.user,
		Token:         s.token,
		Authenticated: s.user != nil,
		Loading:       s.loading,
	}
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
