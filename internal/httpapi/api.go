// Package httpapi is the browser-facing HTTP surface of the gateway.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"finadmin.org/internal/access"
	"finadmin.org/internal/audit"
	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/guard"
	"finadmin.org/internal/obs"
	"finadmin.org/internal/roles"
	"finadmin.org/internal/session"
	"finadmin.org/internal/tokencipher"
)

// ReadyProbe checks dependencies for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

// Check pings the audit database when one is configured.
func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps bundles everything the API layer needs.
type Deps struct {
	Version    string
	Ready      ReadyProbe
	Upstream   *backoffice.Client
	Cipher     *tokencipher.Cipher
	Resolver   *roles.Resolver
	Audit      *audit.Recorder
	Log        *slog.Logger
	CookieOpts session.CookieOptions

	RateBurst     int
	RatePerSecond int
}

// API routes session and guarded admin endpoints.
type API struct {
	mux        *http.ServeMux
	version    string
	ready      ReadyProbe
	upstream   *backoffice.Client
	cipher     *tokencipher.Cipher
	resolver   *roles.Resolver
	audit      *audit.Recorder
	log        *slog.Logger
	cookieOpts session.CookieOptions

	rateBurst  int
	ratePerSec int
}

// New wires the route table.
func New(d Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		version:    d.Version,
		ready:      d.Ready,
		upstream:   d.Upstream,
		cipher:     d.Cipher,
		resolver:   d.Resolver,
		audit:      d.Audit,
		log:        d.Log,
		cookieOpts: d.CookieOpts,
		rateBurst:  d.RateBurst,
		ratePerSec: d.RatePerSecond,
	}
	if a.log == nil {
		a.log = obs.Discard()
	}
	if a.audit == nil {
		a.audit = audit.NewRecorder(nil, a.log)
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/session/login", a.handleLogin)
	a.mux.HandleFunc("/v1/session/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/session/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/session/me", a.handleMe)
	a.mux.HandleFunc("/v1/session/permissions", a.handlePermissions)

	a.admin("/v1/admin/users", guard.Requirement{Permissions: []string{"view_users"}}, a.sectionHandler("users"))
	a.admin("/v1/admin/transactions", guard.Requirement{Permissions: []string{"view_transactions"}}, a.sectionHandler("transactions"))
	a.admin("/v1/admin/tasks", guard.Requirement{Permissions: []string{"view_tasks", "edit_tasks"}, RequireAll: true}, a.sectionHandler("tasks"))
	a.admin("/v1/admin/settings", guard.Requirement{Role: "admin"}, a.sectionHandler("settings"))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = LoggingJSON(a.log)(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// admin mounts handler behind the session middleware and the guard.
func (a *API) admin(path string, req guard.Requirement, handler http.Handler) {
	a.mux.Handle(path, a.withSession(guard.Middleware(req, a.denied(path))(handler)))
}

// withSession revalidates the cookie session and attaches the resolved
// access decision to the request context.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := a.sessionFor(w, r)
		snap := store.Refresh(r.Context())

		tracker := access.NewTracker(a.resolver)
		tracker.Apply(r.Context(), snap)
		decision := tracker.Decision()

		ctx := access.ContextWithDecision(r.Context(), decision)
		if snap.User != nil {
			ctx = obs.WithActorID(ctx, strconv.FormatInt(snap.User.ID, 10))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFor builds the per-request session store bound to the exchange's
// cookies.
func (a *API) sessionFor(w http.ResponseWriter, r *http.Request) *session.Store {
	tokens := session.NewCookieStore(w, r, a.cookieOpts)
	return session.NewStore(a.upstream, a.cipher, tokens, a.log)
}

// denied is the guard fallback: audit, then a JSON 403.
func (a *API) denied(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.audit.Record(r.Context(), audit.EventAccessDenied, obs.ActorIDFromContext(r.Context()), map[string]any{
			"path": path,
		})
		respondError(w, http.StatusForbidden, "forbidden")
	})
}

// sectionHandler is a placeholder body for guarded back-office sections;
// the real content is proxied from the upstream by the SPA itself.
func (a *API) sectionHandler(section string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"section": section,
			"status":  "ok",
		})
	})
}

// --- shared helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
