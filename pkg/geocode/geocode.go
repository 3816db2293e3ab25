// Package geocode resolves free text addresses into coordinates using a
// Nominatim compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrNotFound means the service answered but could not resolve the address.
	ErrNotFound = errors.New("address not found")
	// ErrUnavailable means the service could not be reached or answered with an error.
	ErrUnavailable = errors.New("geocoder unavailable")
)

// HTTPClient executes requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Config tunes the client.
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client queries the search endpoint, throttled by a shared limiter.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      HTTPClient
	limiter   *rate.Limiter
}

// New builds a client with its own http.Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return NewWithClient(&http.Client{Timeout: cfg.Timeout}, cfg)
}

// NewWithClient builds a client around a caller provided HTTPClient.
func NewWithClient(client HTTPClient, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		http:      client,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// ComposeAddress joins the parts as "street, zip city", skipping empty parts.
func ComposeAddress(address, zipCode, city string) string {
	locality := strings.TrimSpace(strings.Join(nonEmpty(zipCode, city), " "))
	return strings.Join(nonEmpty(address, locality), ", ")
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves query into coordinates. It returns ErrNotFound or ErrUnavailable
// (possibly wrapped) and never a default coordinate.
func (c *Client) Geocode(ctx context.Context, query string) (Coordinates, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Coordinates{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Coordinates{}, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Coordinates{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		return Coordinates{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: latitude %q", ErrNotFound, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: longitude %q", ErrNotFound, results[0].Lon)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinates{}, fmt.Errorf("%w: coordinates out of range", ErrNotFound)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
