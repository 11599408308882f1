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
	"net/url"
	"socialwall/internal/models"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Page is one page of a paginated list endpoint.
type Page[T any] struct {
	Results []T   `json:"results"`
	Count   int64 `json:"count"`
}

// Client talks to the REST API. The refresh token lives in the cookie jar,
// the access token in memory.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu          sync.RWMutex
	accessToken string
	refreshing  sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetToken replaces the access token used on every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

type sessionResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

// Login authenticates and keeps both tokens for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out sessionResponse
	err := c.send(ctx, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return out.User, nil
}

// Refresh trades the session cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	var out sessionResponse
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", "", nil, &out); err != nil {
		return err
	}
	c.SetToken(out.AccessToken)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "/auth/logout", "", nil, nil)
	c.SetToken("")
	return err
}

// do performs an authenticated call. A 401 triggers one refresh and one
// retry; a second 401 or any other failure is returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	used := c.token()
	err := c.send(ctx, method, path, used, body, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
		return err
	}

	if rerr := c.refreshOnce(ctx, used); rerr != nil {
		c.log.Debug("token refresh failed", zap.String("path", path), zap.Error(rerr))
		return err
	}
	return c.send(ctx, method, path, c.token(), body, out)
}

// refreshOnce refreshes unless another caller already replaced the token
// that was rejected.
func (c *Client) refreshOnce(ctx context.Context, rejected string) error {
	c.refreshing.Lock()
	defer c.refreshing.Unlock()
	if c.token() != rejected {
		return nil
	}
	return c.Refresh(ctx)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.log.Debug("api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func pageQuery(page, perPage int) string {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("resultsPerPage", fmt.Sprint(perPage))
	return q.Encode()
}
