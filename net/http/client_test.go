package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	glog "github.com/spcent/autoreload/log"
)

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("expected no-cache request header")
		}
		w.Write([]byte("12345"))
	}))
	defer server.Close()

	status, body, err := New().GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK || body != "12345" {
		t.Errorf("got %d %q", status, body)
	}
}

func TestClientGetTextErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	status, _, err := New().GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("status errors must not be transport errors: %v", err)
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", status)
	}
}

func TestClientMaxBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	_, body, err := New(WithMaxBody(10)).GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 10 {
		t.Errorf("expected 10 bytes, got %d", len(body))
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next RoundTripperFunc) RoundTripperFunc {
			return func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next(req)
			}
		}
	}

	transport := roundTripper(func(req *http.Request) (*http.Response, error) {
		order = append(order, "transport")
		return nil, errors.New("connection refused")
	})

	client := New(WithTransport(transport), WithMiddleware(mw("first")), WithMiddleware(mw("second")))
	if _, _, err := client.GetText(context.Background(), "http://example.invalid/"); err == nil {
		t.Fatal("expected transport error")
	}

	want := "first,second,transport"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := glog.NewTextLogger(glog.Config{Output: &buf})
	client := New(WithMiddleware(Logging(logger)))

	if _, _, err := client.GetText(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "http request done") || !strings.Contains(buf.String(), "status=200") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}

type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
