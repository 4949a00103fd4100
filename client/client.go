// Package client is the Go API client for the boilerplate server.  It
// attaches the access token to outgoing requests, keeps the refresh
// token in an httponly cookie via a cookie jar, and transparently
// retries a request that failed authorization after a single guarded
// token refresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired is returned when a silent refresh fails.  The
// client has already cleared its stored credentials; the caller should
// route the user back to login.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response decoded from the server's
// {"error": message} body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to one boilerplate server.  Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	guard   *Guard

	mu    sync.RWMutex
	token string
}

// New builds a client for baseURL (e.g. "https://api.example.com").
// The cookie jar holds the refresh cookie the server sets on login.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Jar: jar, Timeout: 30 * time.Second},
		guard:   NewGuard(),
	}, nil
}

// Token returns the currently stored access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the stored access token.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// ClearToken drops the stored access token.
func (c *Client) ClearToken() { c.SetToken("") }

// do performs one API call.  skipAuth marks the refresh call itself so
// a failed refresh can never recurse into another refresh.  On a 401
// the request is retried exactly once after a guarded refresh.
func (c *Client) do(ctx context.Context, method, path string, body, out any, skipAuth bool) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload, skipAuth)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !skipAuth {
		drain(resp)
		tok, err := c.guard.Do(ctx, func() (string, error) { return c.refresh(ctx) })
		if err != nil {
			c.ClearToken()
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		c.SetToken(tok)
		if resp, err = c.send(ctx, method, path, payload, skipAuth); err != nil {
			return err
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, skipAuth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if !skipAuth {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return c.httpc.Do(req)
}

// refresh exchanges the refresh cookie for a new access token.  Marked
// skipAuth so its own 401 surfaces instead of queueing behind itself.
func (c *Client) refresh(ctx context.Context) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/user/refresh-token", nil, &res, true); err != nil {
		return "", err
	}
	return res.Token, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ----- typed API surface -----

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Number      string `json:"number"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Password    string `json:"password"`
}

// Profile is the sanitized user view returned by FetchUserInfo.
type Profile struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Number      string  `json:"number"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Role        string  `json:"role"`
}

// ProfileUpdate is a partial profile update; nil fields are untouched.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Number      *string `json:"number,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	Zip         *string `json:"zip,omitempty"`
}

// Register creates an account of the given type ("user" or "company").
func (c *Client) Register(ctx context.Context, userType string, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/user/register/"+userType, req, nil, true)
}

// Login authenticates and stores the returned access token; the
// refresh cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var res struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/user/login", body, &res, true); err != nil {
		return err
	}
	c.SetToken(res.Token)
	return nil
}

// Logout revokes the server-side refresh token and clears local state.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/user/logout", nil, nil, true)
	c.ClearToken()
	return err
}

// ForgotPassword asks the server to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/user/forgot-password", map[string]string{"email": email}, nil, true)
}

// ResetPassword consumes a reset token from the emailed link.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/api/user/reset-password", body, nil, true)
}

// FetchUserInfo returns the authenticated user's profile.
func (c *Client) FetchUserInfo(ctx context.Context) (Profile, error) {
	var res struct {
		User Profile `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/user/fetch-user-info", nil, &res, false)
	return res.User, err
}

// UpdateUserInfo applies a partial profile update.
func (c *Client) UpdateUserInfo(ctx context.Context, upd ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/user/update-user-info", upd, nil, false)
}

// ChangeUserPassword replaces the password for the authenticated user.
func (c *Client) ChangeUserPassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return c.do(ctx, http.MethodPatch, "/api/user/change-user-password", body, nil, false)
}
