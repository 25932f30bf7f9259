package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	glog "github.com/spcent/autoreload/log"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := NewChain(mark("a")).Use(mark("b")).Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,handler" {
		t.Errorf("order = %s", got)
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := glog.NewJSONLogger(glog.Config{Output: &buf, Level: glog.DEBUG})

	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	entries := jsonLines(t, &buf)
	if len(entries) != 1 || entries[0]["panic"] != "boom" {
		t.Errorf("unexpected log entries: %v", entries)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = glog.TraceIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" {
			t.Fatal("expected a generated trace id")
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("header %q does not match context %q", rec.Header().Get(RequestIDHeader), seen)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "req-42" {
			t.Errorf("trace id = %q, want req-42", seen)
		}
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := glog.NewJSONLogger(glog.Config{Output: &buf, Level: glog.INFO})

	h := NewChain(RequestID(), Logging(logger, "/health_check")).Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("hello"))
	}))

	for _, path := range []string{"/", "/health_check", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := jsonLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 info entries, got %d: %v", len(entries), entries)
	}
	first := entries[0]
	if first["path"] != "/" || first["status"] != float64(200) || first["bytes"] != float64(5) {
		t.Errorf("unexpected entry: %v", first)
	}
	if first["trace_id"] == nil || first["trace_id"] == "" {
		t.Error("expected trace_id on request log")
	}
	if entries[1]["status"] != float64(404) {
		t.Errorf("expected 404 entry, got %v", entries[1])
	}
}
