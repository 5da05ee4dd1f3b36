package session

import (
	"net/http"
	"time"
)

// CookieName is the browser-facing cookie holding the encrypted envelope.
const CookieName = "auth-token"

// cookieTTL matches the upstream token lifetime.
const cookieTTL = 7 * 24 * time.Hour

// CookieOptions carry the deployment-specific cookie attributes.
type CookieOptions struct {
	Domain string
	Secure bool
}

// CookieStore binds a TokenStore to one HTTP exchange: reads come from
// the request, writes go to the response. One instance per request.
type CookieStore struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions
}

// NewCookieStore builds the per-request token store.
func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	return &CookieStore{w: w, r: r, opts: opts}
}

func (c *CookieStore) Load() (string, bool) {
	ck, err := c.r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (c *CookieStore) Save(envelope string) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    envelope,
		Path:     "/",
		Domain:   c.opts.Domain,
		MaxAge:   int(cookieTTL.Seconds()),
		Secure:   c.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (c *CookieStore) Clear() {
	// Nothing to delete when the request carried no cookie; anonymous
	// responses stay free of Set-Cookie headers.
	if _, ok := c.Load(); !ok {
		return
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.opts.Domain,
		MaxAge:   -1,
		Secure:   c.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// MemoryTokenStore keeps the envelope in memory; used by tests and CLI
// tooling that has no cookie jar.
type MemoryTokenStore struct {
	envelope string
	ok       bool
}

func (m *MemoryTokenStore) Load() (string, bool) { return m.envelope, m.ok }

func (m *MemoryTokenStore) Save(envelope string) error {
	m.envelope = envelope
	m.ok = true
	return nil
}

func (m *MemoryTokenStore) Clear() {
	m.envelope = ""
	m.ok = false
}
