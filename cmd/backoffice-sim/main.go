// Command backoffice-sim is a development stand-in for the remote
// back-office API. It serves the four endpoints the gateway consumes,
// issuing short-lived HS256 tokens for a canned set of users.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"finadmin.org/internal/backoffice"
)

var signingKey = []byte("backoffice-sim-dev-key")

type account struct {
	secret string
	user   backoffice.User
}

var accounts = map[string]account{
	"adair": {
		secret: "s3cret",
		user: backoffice.User{
			ID: 1, Name: "Adair Quinn", Username: "adair",
			Email: "adair@example.com", Role: "manager", Status: "active",
			Departments: []backoffice.Department{
				{ID: 10, Name: "Operations", Role: "manager", Status: "active"},
			},
		},
	},
	"root": {
		secret: "changeme",
		user: backoffice.User{
			ID: 2, Name: "Root Admin", Username: "root",
			Email: "root@example.com", Role: "admin", Status: "active",
			HasTempPassword: true,
		},
	},
	"lee": {
		secret: "viewer",
		user: backoffice.User{
			ID: 3, Name: "Lee Park", Username: "lee",
			Email: "lee@example.com", Role: "analyst", Status: "active",
		},
	},
}

var catalog = []backoffice.RoleEntry{
	{Key: "admin", Label: "Administrator", Permissions: []string{
		"view_users", "view_transactions", "view_tasks", "edit_tasks", "manage_settings",
	}},
	{Key: "manager", Label: "Manager", Permissions: []string{
		"view_users", "view_tasks", "edit_tasks",
	}},
	{Key: "analyst", Label: "Analyst", Permissions: []string{
		"view_transactions",
	}},
}

// sim tracks revoked token ids so logout actually invalidates sessions.
type sim struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	s := &sim{revoked: make(map[string]struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/profile", s.handleProfile)
	mux.HandleFunc("/admin-role", s.handleRoles)

	log.Printf("backoffice-sim listening on %s (users: adair/s3cret, root/changeme, lee/viewer)", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func (s *sim) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var creds backoffice.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	acct, ok := accounts[creds.Identifier]
	if !ok || acct.secret != creds.Secret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": acct.user.Username,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(8 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	u := acct.user
	u.LoginTime = now.Format(time.RFC3339)
	writeJSON(w, map[string]any{
		"token":             token,
		"id":                u.ID,
		"name":              u.Name,
		"username":          u.Username,
		"email":             u.Email,
		"phone":             u.Phone,
		"role":              u.Role,
		"status":            u.Status,
		"has_temp_password": u.HasTempPassword,
		"login_time":        u.LoginTime,
		"departments":       u.Departments,
	})
}

func (s *sim) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if claims, ok := s.verify(r); ok {
		if jti, _ := claims["jti"].(string); jti != "" {
			s.mu.Lock()
			s.revoked[jti] = struct{}{}
			s.mu.Unlock()
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *sim) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := s.verify(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	sub, _ := claims["sub"].(string)
	acct, ok := accounts[sub]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, acct.user)
}

func (s *sim) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.verify(r); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, catalog)
}

func (s *sim) verify(r *http.Request) (jwt.MapClaims, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return nil, false
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	if jti, _ := claims["jti"].(string); jti != "" {
		s.mu.Lock()
		_, gone := s.revoked[jti]
		s.mu.Unlock()
		if gone {
			return nil, false
		}
	}
	return claims, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
