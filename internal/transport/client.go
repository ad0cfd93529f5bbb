package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxBodyBytes = 1 << 20

	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Config locates the auth endpoints.
type Config struct {
	BaseURL     string
	LoginPath   string
	LogoutPath  string
	ProfilePath string
	// IdentityField is the response field holding the user object, "admin"
	// for the admin portal and "user" for the customer product.
	IdentityField string
	Timeout       time.Duration
	UserAgent     string
}

// Client issues auth API requests.
type Client struct {
	http  *http.Client
	cfg   Config
	base  *url.URL
	newID func() string
}

// New validates cfg and returns a Client. A nil hc uses a default client.
// cfg.Timeout bounds each request either way.
func New(cfg Config, hc *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.LoginPath == "" || cfg.LogoutPath == "" {
		return nil, errors.New("login and logout paths are required")
	}
	if cfg.IdentityField == "" {
		return nil, errors.New("identity field is required")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc, cfg: cfg, base: base, newID: uuid.NewString}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, c.newID())
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return req, nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrUnavailable, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Detail: parseDetail(body)}
	}
	return body, nil
}

// Login posts form-encoded credentials. The response must carry an access
// token and the identity object named by Config.IdentityField.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.LoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return LoginResponse{}, fmt.Errorf("%w: login: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do("login", req)
	if err != nil {
		return LoginResponse{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return LoginResponse{}, fmt.Errorf("%w: login: %v", ErrMalformed, err)
	}

	var out LoginResponse
	if v, ok := raw["access_token"]; ok {
		_ = json.Unmarshal(v, &out.AccessToken)
	}
	if v, ok := raw["token_type"]; ok {
		_ = json.Unmarshal(v, &out.TokenType)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return LoginResponse{}, fmt.Errorf("%w: login: missing access_token", ErrMalformed)
	}

	ident, ok := raw[c.cfg.IdentityField]
	if !ok {
		return LoginResponse{}, fmt.Errorf("%w: login: missing %s object", ErrMalformed, c.cfg.IdentityField)
	}
	if err := json.Unmarshal(ident, &out.Identity); err != nil {
		return LoginResponse{}, fmt.Errorf("%w: login: %s object: %v", ErrMalformed, c.cfg.IdentityField, err)
	}
	if !out.Identity.Valid() {
		return LoginResponse{}, fmt.Errorf("%w: login: empty %s object", ErrMalformed, c.cfg.IdentityField)
	}
	return out, nil
}

// Logout tells the server to end the session behind token. Callers treat
// failures as best effort.
func (c *Client) Logout(ctx context.Context, token string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.LogoutPath, nil)
	if err != nil {
		return fmt.Errorf("%w: logout: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = c.do("logout", req)
	return err
}

// Profile fetches the current identity. The body may be the identity itself
// or wrap it under Config.IdentityField.
func (c *Client) Profile(ctx context.Context, token string) (Identity, error) {
	if c.cfg.ProfilePath == "" {
		return Identity{}, errors.New("profile path not configured")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, c.cfg.ProfilePath, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: profile: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do("profile", req)
	if err != nil {
		return Identity{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Identity{}, fmt.Errorf("%w: profile: %v", ErrMalformed, err)
	}
	if wrapped, ok := raw[c.cfg.IdentityField]; ok {
		body = wrapped
	}

	var ident Identity
	if err := json.Unmarshal(body, &ident); err != nil {
		return Identity{}, fmt.Errorf("%w: profile: %v", ErrMalformed, err)
	}
	if !ident.Valid() {
		return Identity{}, fmt.Errorf("%w: profile: empty identity", ErrMalformed)
	}
	return ident, nil
}
