package provider

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// upstream is a fake transit API that replays scripted responses.
type upstream struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  func(n int, w http.ResponseWriter, r *http.Request)
	srv      *httptest.Server
}

func newUpstream(t *testing.T, handler func(n int, w http.ResponseWriter, r *http.Request)) *upstream {
	t.Helper()
	u := &upstream{handler: handler}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r)
		n := len(u.requests)
		u.mu.Unlock()
		u.handler(n, w, r)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *upstream) last() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requests[len(u.requests)-1]
}

func respond(status int, body string) func(int, http.ResponseWriter, *http.Request) {
	return func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		SearchURL: baseURL,
		Retry:     RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
