// Package linkcheck probes a URL and classifies it as valid, invalid or unreachable.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Status is the tri-state outcome of a probe.
type Status string

const (
	Valid       Status = "valid"
	Invalid     Status = "invalid"
	Unreachable Status = "unreachable"
)

const maxRedirects = 5

// HTTPClient executes requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result describes one probe.
type Result struct {
	Status     Status
	StatusCode int
	Err        error
}

// OK reports whether the link may be persisted.
func (r Result) OK() bool { return r.Status == Valid }

// Config tunes the checker.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Checker performs liveness checks with a bounded timeout.
type Checker struct {
	client    HTTPClient
	timeout   time.Duration
	userAgent string
}

// New builds a checker using a dedicated http.Client.
func New(cfg Config) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return NewWithClient(client, cfg)
}

// NewWithClient builds a checker around a caller provided client.
func NewWithClient(client HTTPClient, cfg Config) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Checker{client: client, timeout: cfg.Timeout, userAgent: cfg.UserAgent}
}

// Check probes rawURL. It never returns an error; failures are encoded in the Result.
func (c *Checker) Check(ctx context.Context, rawURL string) Result {
	target, err := Parse(rawURL)
	if err != nil {
		return Result{Status: Invalid, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	code, err := c.probe(ctx, http.MethodHead, target)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, err = c.probe(ctx, http.MethodGet, target)
	}
	if err != nil {
		return Result{Status: Unreachable, Err: err}
	}
	if code >= http.StatusBadRequest {
		return Result{Status: Invalid, StatusCode: code, Err: fmt.Errorf("link answered %d", code)}
	}
	// A redirect left at the end of the chain means the cap was hit.
	if code >= http.StatusMultipleChoices {
		return Result{Status: Invalid, StatusCode: code, Err: fmt.Errorf("link still redirecting after %d hops", maxRedirects)}
	}
	return Result{Status: Valid, StatusCode: code}
}

// Parse accepts absolute http(s) URLs with a host.
func Parse(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("empty url")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

func (c *Checker) probe(ctx context.Context, method string, target *url.URL) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return 0, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}
