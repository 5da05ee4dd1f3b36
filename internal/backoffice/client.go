// Package backoffice is the typed HTTP client for the remote back-office
// API that owns users, sessions and the role catalog.
package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrInvalidCredentials indicates the upstream rejected the login.
	ErrInvalidCredentials = errors.New("backoffice: invalid credentials")
	// ErrSessionInvalid indicates the bearer token was rejected.
	ErrSessionInvalid = errors.New("backoffice: session invalid")
)

const defaultTimeout = 10 * time.Second

// Client talks to the back-office REST API. Transient upstream failures
// are retried with jittered backoff; 4xx responses are not.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, retries int, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	if log != nil {
		rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				log.Warn("upstream retry", "method", req.Method, "url", req.URL.Path, "attempt", attempt)
			}
		}
	}
	return &Client{
		http:    rc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// loginResponse is the flat login payload: token plus minimal user fields.
type loginResponse struct {
	Token string `json:"token"`
	User
}

// Login exchanges credentials for a bearer token and the user snapshot.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return LoginResult{}, fmt.Errorf("backoffice: marshal credentials: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, fmt.Errorf("backoffice: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return LoginResult{}, fmt.Errorf("backoffice: login: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var data loginResponse
		if err := decodeBody(resp.Body, &data); err != nil {
			return LoginResult{}, fmt.Errorf("backoffice: decode login response: %w", err)
		}
		return LoginResult{Token: data.Token, User: data.User}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return LoginResult{}, ErrInvalidCredentials
	default:
		return LoginResult{}, unexpectedStatus("login", resp)
	}
}

// Logout notifies the upstream that the session ended. The response body
// is ignored; only transport and 5xx failures surface as errors.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("backoffice: build logout request: %w", err)
	}
	setBearer(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backoffice: logout: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return unexpectedStatus("logout", resp)
	}
	return nil
}

// Profile fetches the current user for the given bearer token.
func (c *Client) Profile(ctx context.Context, token string) (User, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/profile", nil)
	if err != nil {
		return User{}, fmt.Errorf("backoffice: build profile request: %w", err)
	}
	setBearer(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("backoffice: profile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var u User
		if err := decodeBody(resp.Body, &u); err != nil {
			return User{}, fmt.Errorf("backoffice: decode profile: %w", err)
		}
		return u, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return User{}, ErrSessionInvalid
	default:
		return User{}, unexpectedStatus("profile", resp)
	}
}

// Roles fetches the role catalog: every role with its permission list.
func (c *Client) Roles(ctx context.Context, token string) ([]RoleEntry, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin-role", nil)
	if err != nil {
		return nil, fmt.Errorf("backoffice: build roles request: %w", err)
	}
	setBearer(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backoffice: roles: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var entries []RoleEntry
		if err := decodeBody(resp.Body, &entries); err != nil {
			return nil, fmt.Errorf("backoffice: decode roles: %w", err)
		}
		return entries, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrSessionInvalid
	default:
		return nil, unexpectedStatus("roles", resp)
	}
}

func setBearer(req *retryablehttp.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeBody(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(v)
}

func unexpectedStatus(op string, resp *http.Response) error {
	return fmt.Errorf("backoffice: %s: unexpected status %d", op, resp.StatusCode)
}
