package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"finadmin.org/internal/access"
	"finadmin.org/internal/audit"
	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/session"
)

// loginEntryPoint is the SPA route an expired session redirects to.
const loginEntryPoint = "/login"

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var creds backoffice.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Identifier == "" || creds.Secret == "" {
		respondError(w, http.StatusBadRequest, "identifier and secret are required")
		return
	}

	store := a.sessionFor(w, r)
	user, err := store.Login(r.Context(), creds)
	switch {
	case errors.Is(err, backoffice.ErrInvalidCredentials):
		a.audit.Record(r.Context(), audit.EventLoginFailed, "", map[string]any{
			"identifier": creds.Identifier,
			"reason":     "credentials",
		})
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case errors.Is(err, session.ErrNoToken):
		a.log.ErrorContext(r.Context(), "upstream login answered without a token")
		respondError(w, http.StatusBadGateway, "upstream login malformed")
		return
	case err != nil:
		a.log.ErrorContext(r.Context(), "login failed", "err", err)
		respondError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}

	a.audit.Record(r.Context(), audit.EventLogin, strconv.FormatInt(user.ID, 10), map[string]any{
		"role": user.Role,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := a.sessionFor(w, r)
	store.Logout(r.Context())
	a.resolver.Clear(r.Context())
	a.audit.Record(r.Context(), audit.EventLogout, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	a.respondSession(w, r)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	a.respondSession(w, r)
}

// respondSession revalidates the cookie session and answers with either
// the fresh user snapshot or the logged-out shape.
func (a *API) respondSession(w http.ResponseWriter, r *http.Request) {
	hadCookie := hasSessionCookie(r)
	store := a.sessionFor(w, r)
	snap := store.Refresh(r.Context())

	if !snap.Authenticated {
		if hadCookie {
			// The session existed and failed revalidation: the cookie is
			// already cleared, tell the SPA where to go.
			a.audit.Record(r.Context(), audit.EventRefreshDenied, "", nil)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"authenticated": false,
			"redirect":      loginEntryPoint,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          snap.User,
	})
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	store := a.sessionFor(w, r)
	snap := store.Refresh(r.Context())
	if !snap.Authenticated {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"authenticated": false,
			"redirect":      loginEntryPoint,
		})
		return
	}

	tracker := access.NewTracker(a.resolver)
	tracker.Apply(r.Context(), snap)
	decision := tracker.Decision()

	writeJSON(w, http.StatusOK, map[string]any{
		"role":        snap.User.Role,
		"permissions": decision.Permissions(),
		"loading":     decision.Loading(),
	})
}

func hasSessionCookie(r *http.Request) bool {
	ck, err := r.Cookie(session.CookieName)
	return err == nil && ck.Value != ""
}
