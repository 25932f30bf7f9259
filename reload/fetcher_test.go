package reload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHTTPFetcherURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://localhost:8080", "http://localhost:8080/health_check", false},
		{"http://localhost:8080/", "http://localhost:8080/health_check", false},
		{"https://example.com/app/?x=1#top", "https://example.com/app/health_check", false},
		{"ftp://example.com", "", true},
		{"localhost:8080", "", true},
		{"http://", "", true},
	}

	for _, tt := range tests {
		f, err := NewHTTPFetcher(tt.base, nil, nil)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidBaseURL) {
				t.Errorf("%q: expected ErrInvalidBaseURL, got %v", tt.base, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.base, err)
			continue
		}
		if f.URL() != tt.want {
			t.Errorf("%q: url = %q, want %q", tt.base, f.URL(), tt.want)
		}
	}
}

func TestHTTPFetcherStatuses(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health_check" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
		w.Write([]byte("abc123"))
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(server.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	token, err := f.Fetch(context.Background())
	if err != nil || token != "abc123" {
		t.Fatalf("200: got %q, %v", token, err)
	}

	status.Store(http.StatusServiceUnavailable)
	token, err = f.Fetch(context.Background())
	if err != nil || token != "" {
		t.Fatalf("503: got %q, %v; want empty token and no error", token, err)
	}
}

func TestHTTPFetcherTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	f, err := NewHTTPFetcher(url, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected transport error from a closed server")
	}
}

// TestPollerAgainstRestartingServer swaps the token behind a live server the
// way a process restart would.
func TestPollerAgainstRestartingServer(t *testing.T) {
	var token atomic.Value
	token.Store("first")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(token.Load().(string)))
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(server.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	p := New(f, ReloaderFunc(func(context.Context) error {
		reloads.Add(1)
		return nil
	}), WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for p.State().Phase() != PhaseArmed {
		select {
		case <-ctx.Done():
			t.Fatal("poller never armed")
		case <-time.After(time.Millisecond):
		}
	}
	token.Store("second")

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloads.Load() != 1 {
		t.Errorf("expected one reload, got %d", reloads.Load())
	}
}
