package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/healthcompanion/companion/internal/accounts"
)

// ErrNotSignedIn is returned by calls that need a stored token.
var ErrNotSignedIn = errors.New("client: not signed in")

// APIError carries the error body returned by the server.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff replaces the retry policy of idempotent reads.
func WithBackoff(newBackoff func() retry.Backoff) Option {
	return func(c *Client) { c.backoff = newBackoff }
}

// Client calls the companion API on behalf of one local user.
type Client struct {
	baseURL string
	http    *http.Client
	store   *FileStore
	backoff func() retry.Backoff
}

// New builds a Client for the API rooted at baseURL, e.g.
// http://localhost:5000/api.
func New(baseURL string, store *FileStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sessionResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    accounts.User `json:"user"`
}

// Signup registers an account and stores the returned session.
func (c *Client) Signup(ctx context.Context, req accounts.SignupRequest) (accounts.User, error) {
	return c.establish(ctx, "/auth/signup", req)
}

// Signin authenticates and stores the returned session.
func (c *Client) Signin(ctx context.Context, email, password string) (accounts.User, error) {
	return c.establish(ctx, "/auth/signin", map[string]string{"email": email, "password": password})
}

func (c *Client) establish(ctx context.Context, path string, body any) (accounts.User, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return accounts.User{}, err
	}
	user := resp.User
	if err := c.store.Save(Session{Token: resp.Token, Profile: &user}); err != nil {
		return accounts.User{}, err
	}
	return user, nil
}

// Signout forgets the stored token and profile.
func (c *Client) Signout() error {
	return c.store.Clear()
}

// Session returns the stored session.
func (c *Client) Session() (Session, error) {
	return c.store.Load()
}

// Profile fetches the full profile. Transport errors and 5xx responses are
// retried with exponential backoff.
func (c *Client) Profile(ctx context.Context) (accounts.Profile, error) {
	token, err := c.token()
	if err != nil {
		return accounts.Profile{}, err
	}
	var resp struct {
		User accounts.Profile `json:"user"`
	}
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, "/user/profile", token, nil, &resp)
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return accounts.Profile{}, err
	}
	return resp.User, nil
}

// UpdateProfile sends the non-nil fields of update and refreshes the stored
// profile.
func (c *Client) UpdateProfile(ctx context.Context, update accounts.ProfileUpdate) (accounts.User, error) {
	session, err := c.store.Load()
	if err != nil {
		return accounts.User{}, err
	}
	if session.Token == "" {
		return accounts.User{}, ErrNotSignedIn
	}
	var resp struct {
		Message string        `json:"message"`
		User    accounts.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/user/profile", session.Token, update, &resp); err != nil {
		return accounts.User{}, err
	}
	session.Profile = &resp.User
	if err := c.store.Save(session); err != nil {
		return accounts.User{}, err
	}
	return resp.User, nil
}

func (c *Client) token() (string, error) {
	session, err := c.store.Load()
	if err != nil {
		return "", err
	}
	if session.Token == "" {
		return "", ErrNotSignedIn
	}
	return session.Token, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var transportErr *url.Error
	return errors.As(err, &transportErr)
}
