// Package garmin wraps the Garmin Connect REST API behind per-entity fetch
// operations with cached-session authentication.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

const sessionFileName = "session.json"

// errNotFound marks a 404 from a day-scoped endpoint; callers translate it to
// "no data for that date" rather than a failure.
var errNotFound = errors.New("not found")

// Config captures the connection settings for the upstream API.
type Config struct {
	BaseURL    string
	Email      string
	Password   string
	SessionDir string
	Timeout    time.Duration
	PageSize   int
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithLogger overrides the logger used for session and paging progress.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client talks to Garmin Connect. A session token is cached on disk after the
// first successful login so subsequent runs skip the credential exchange; a
// rejected cached token triggers one transparent re-login per request.
type Client struct {
	baseURL     string
	email       string
	password    string
	sessionPath string
	pageSize    int
	httpClient  *http.Client
	logger      *log.Logger
	token       string
}

// New constructs a Client. No network traffic happens until the first fetch.
func New(cfg Config, opts ...Option) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:     cfg.BaseURL,
		email:       cfg.Email,
		password:    cfg.Password,
		sessionPath: filepath.Join(cfg.SessionDir, sessionFileName),
		pageSize:    pageSize,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log.New(log.Writer(), "[garmin] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type session struct {
	AccessToken string    `json:"access_token"`
	SavedAt     time.Time `json:"saved_at"`
}

func (c *Client) loadSession() bool {
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return false
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil || s.AccessToken == "" {
		return false
	}
	c.token = s.AccessToken
	return true
}

func (c *Client) saveSession() {
	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0o700); err != nil {
		c.logger.Printf("could not create session dir: %v", err)
		return
	}
	data, err := json.Marshal(session{AccessToken: c.token, SavedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := os.WriteFile(c.sessionPath, data, 0o600); err != nil {
		c.logger.Printf("could not persist session: %v", err)
	}
}

// login exchanges credentials for a fresh access token and caches it.
func (c *Client) login(ctx context.Context) error {
	if c.email == "" || c.password == "" {
		return fmt.Errorf("%w: GARMIN_EMAIL and GARMIN_PASSWORD must be set", domain.ErrAuth)
	}

	body, err := json.Marshal(map[string]string{"username": c.email, "password": c.password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: credentials rejected (status %d)", domain.ErrAuth, resp.StatusCode)
	case resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: login returned status %d: %s", domain.ErrTransient, resp.StatusCode, data)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.AccessToken == "" {
		return fmt.Errorf("%w: login response missing access_token", domain.ErrSchema)
	}

	c.token = payload.AccessToken
	c.saveSession()
	c.logger.Printf("logged in, session cached at %s", c.sessionPath)
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.token != "" {
		return nil
	}
	if c.loadSession() {
		return nil
	}
	return c.login(ctx)
}

// getJSON performs an authenticated GET and decodes the response. A rejected
// token causes exactly one re-login and retry before surfacing ErrAuth.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	retried := false
	for {
		resp, err := c.get(ctx, path, query)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			if retried {
				return fmt.Errorf("%w: session rejected after re-login (status %d)", domain.ErrAuth, resp.StatusCode)
			}
			retried = true
			c.logger.Printf("cached session rejected, logging in again")
			c.token = ""
			if err := c.login(ctx); err != nil {
				return err
			}
			continue
		}

		return decodeResponse(resp, out)
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: upstream returned status %d", domain.ErrTransient, resp.StatusCode)
	case resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status %d: %s", domain.ErrSchema, resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}
	return nil
}
