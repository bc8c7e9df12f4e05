package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoGetSuccess(t *testing.T) {
	var gotUA, gotCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, status, err := DoGet(context.Background(), server.Client(), server.URL, map[string]string{"X-Custom": "v"})
	if err != nil {
		t.Fatalf("DoGet error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status: got %d", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body: got %q", body)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent: got %q", gotUA)
	}
	if gotCustom != "v" {
		t.Errorf("custom header: got %q", gotCustom)
	}
}

func TestDoGetNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errorMessage":"slow down"}`))
	}))
	defer server.Close()

	body, status, err := DoGet(context.Background(), nil, server.URL, nil)
	if status != http.StatusTooManyRequests {
		t.Errorf("status: got %d", status)
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *ErrHTTP, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("ErrHTTP.StatusCode: got %d", httpErr.StatusCode)
	}
	if httpErr.Body != `{"errorMessage":"slow down"}` || string(body) != httpErr.Body {
		t.Errorf("body not preserved: %q / %q", httpErr.Body, body)
	}
}

func TestDoGetTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, status, err := DoGet(context.Background(), nil, url, nil)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if status != 0 {
		t.Errorf("status: got %d, want 0", status)
	}
}

func TestDoGetHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, _, err := DoGet(ctx, nil, server.URL, nil); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestErrHTTPError(t *testing.T) {
	e := &ErrHTTP{StatusCode: 404, Status: "Not Found", Body: "page not found"}
	if msg := e.Error(); msg != "HTTP 404 Not Found: page not found" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(3 * time.Second)
	if c.Timeout != 3*time.Second {
		t.Errorf("Timeout: got %v", c.Timeout)
	}
	if c.Transport == nil {
		t.Error("expected a tuned transport")
	}
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() #%d failed: %v", i, err)
		}
	}
}

func TestRateLimiterCancelledContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour) // 1 token, very slow refill.
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait() failed: %v", err)
	}

	ctx2, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx2); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	if rl != nil {
		t.Fatal("expected nil limiter for zero tokens")
	}
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("nil limiter should never block: %v", err)
		}
	}
}
