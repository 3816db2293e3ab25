package linkcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValid(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := New(Config{Timeout: time.Second, UserAgent: "civic-archive-test/1"}).Check(context.Background(), srv.URL)
	assert.Equal(t, Valid, res.Status)
	assert.True(t, res.OK())
	assert.Equal(t, "civic-archive-test/1", ua.Load())
}

func TestCheckFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := New(Config{Timeout: time.Second}).Check(context.Background(), srv.URL)
	assert.Equal(t, Valid, res.Status)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestCheckErrorStatusIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := New(Config{Timeout: time.Second}).Check(context.Background(), srv.URL+"/missing")
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, res.OK())
}

func TestCheckRedirectLoopIsInvalid(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	res := New(Config{Timeout: 2 * time.Second}).Check(context.Background(), srv.URL+"/loop")
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.False(t, res.OK())
	assert.Equal(t, int32(maxRedirects), atomic.LoadInt32(&hits))
}

func TestCheckMalformedSkipsNetwork(t *testing.T) {
	client := &countingClient{}
	checker := NewWithClient(client, Config{})
	for _, raw := range []string{"", "not a url", "ftp://example.com/file", "http://", "mailto:a@b.c"} {
		res := checker.Check(context.Background(), raw)
		assert.Equal(t, Invalid, res.Status, raw)
		require.Error(t, res.Err, raw)
	}
	assert.Zero(t, client.calls)
}

func TestCheckTransportErrorIsUnreachable(t *testing.T) {
	client := &countingClient{err: errors.New("dial tcp: connection refused")}
	res := NewWithClient(client, Config{}).Check(context.Background(), "https://example.invalid")
	assert.Equal(t, Unreachable, res.Status)
	assert.Equal(t, 1, client.calls)
}

func TestCheckTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := New(Config{Timeout: 50 * time.Millisecond}).Check(context.Background(), srv.URL)
	assert.Equal(t, Unreachable, res.Status)
}

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) Do(*http.Request) (*http.Response, error) {
	c.calls++
	return nil, c.err
}
