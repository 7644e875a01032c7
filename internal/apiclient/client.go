// Package apiclient talks to the Mission Control backend API.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	mcerrors "github.com/rcourtman/mission-control/internal/errors"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout        = 30 * time.Second
	maxHTTPErrorBodyBytes = 4096
	userAgent             = "mission-control"
)

// Config holds configuration for the API client.
type Config struct {
	BaseURL            string
	Token              string
	AccessClientID     string
	AccessClientSecret string
	Timeout            time.Duration
	DNSCacheTTL        time.Duration // 0 disables DNS caching
	Logger             zerolog.Logger

	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
}

// Client issues JSON requests against the backend. A single Client is shared
// by every hook; SetToken affects all subsequent calls.
type Client struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
	dialer     *cachingDialer

	mu    sync.RWMutex
	token string
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https scheme: %q", cfg.BaseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base URL must include a host: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: baseURL,
		cfg:     cfg,
		token:   strings.TrimSpace(cfg.Token),
	}

	transport := cfg.Transport
	if transport == nil {
		t := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		}
		if cfg.DNSCacheTTL > 0 {
			c.dialer = newCachingDialer(cfg.DNSCacheTTL, cfg.Logger)
			t.DialContext = c.dialer.DialContext
		}
		transport = t
	}

	c.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer token. An empty token removes the header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close releases background resources held by the client.
func (c *Client) Close() {
	if c.dialer != nil {
		c.dialer.Close()
	}
	c.httpClient.CloseIdleConnections()
}

// Get issues GET baseURL+path and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post JSON-encodes body, issues POST baseURL+path and decodes into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// GetJSON is the typed form of Client.Get.
func GetJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.Get(ctx, path, &out)
	return out, err
}

// PostJSON is the typed form of Client.Post.
func PostJSON[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Post(ctx, path, body, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.cfg.Logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return mcerrors.WrapConnectionError(method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.cfg.Logger.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	c.cfg.Logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpStatusError(resp, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return mcerrors.WrapDecodeError(method, path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.cfg.AccessClientID != "" && c.cfg.AccessClientSecret != "" {
		req.Header.Set("CF-Access-Client-Id", c.cfg.AccessClientID)
		req.Header.Set("CF-Access-Client-Secret", c.cfg.AccessClientSecret)
	}
}

// httpStatusError keeps the envelope error (or a body excerpt) as detail; the
// message stays "API error: <status text>".
func httpStatusError(resp *http.Response, method, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxHTTPErrorBodyBytes))

	detail := strings.TrimSpace(string(body))
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		detail = envelope.Error
	}

	return mcerrors.NewHTTPStatusError(method, path, resp.StatusCode, resp.Status, detail)
}
