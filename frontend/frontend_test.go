package frontend

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestReloadJSMatchesPollContract(t *testing.T) {
	js := ReloadJS()
	for _, want := range []string{`"/health_check"`, "1000", "scrollRestoration", "history.go()", "response.status === 200"} {
		if !strings.Contains(js, want) {
			t.Errorf("reload.js missing %q", want)
		}
	}
}

// TestReloadJSDecisionOrder checks the layout of the decision block in
// reload.js: reload in the changed branch, re-arm the timer only in the else
// branch, and store a non-empty token after the decision in both cases. The
// behaviour itself is covered by the Poller tests in package reload.
func TestReloadJSDecisionOrder(t *testing.T) {
	js := ReloadJS()
	start := strings.Index(js, `if (previous !== "" && current !== "" && current !== previous) {`)
	if start < 0 {
		t.Fatal("reload.js: restart condition not found")
	}
	block := js[start:]

	elseAt := strings.Index(block, "} else {")
	reloadAt := strings.Index(block, "window.history.go();")
	rearmAt := strings.Index(block, "window.setTimeout(poll, interval);")
	storeAt := strings.Index(block, "previous = current;")
	for name, at := range map[string]int{"else": elseAt, "reload": reloadAt, "re-arm": rearmAt, "store": storeAt} {
		if at < 0 {
			t.Fatalf("reload.js: %s not found after the restart condition", name)
		}
	}

	if reloadAt > elseAt {
		t.Error("reload must happen in the changed branch")
	}
	if rearmAt < elseAt {
		t.Error("the timer must only be re-armed when no restart was seen")
	}
	if storeAt < rearmAt {
		t.Error("the token must be stored after the reload decision")
	}
	guard := strings.LastIndex(block[:storeAt], `if (current !== "") {`)
	if guard < rearmAt {
		t.Error("only a non-empty token may be stored")
	}
	if strings.Count(js, "window.setTimeout(poll, interval);") != 2 {
		t.Error("expected one initial schedule and one re-arm")
	}
}

func TestScripts(t *testing.T) {
	if Scripts(false) != "" {
		t.Error("disabled scripts must be empty")
	}
	s := Scripts(true)
	if !strings.HasPrefix(s, "<script>\n") || !strings.HasSuffix(s, "</script>\n") {
		t.Errorf("unexpected script block: %q", s[:20])
	}
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ScriptPath, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/javascript") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != ReloadJS() {
		t.Error("body should be the embedded script")
	}

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, ScriptPath, nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func serve(h http.Handler, method string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
	return rec
}

func TestInjectHTML(t *testing.T) {
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("<html><body><h1>hi</h1>"))
		w.Write([]byte("</BODY></html>"))
	})

	rec := serve(Inject(true)(page), http.MethodGet)
	body := rec.Body.String()

	want := "<html><body><h1>hi</h1>" + Scripts(true) + "</BODY></html>"
	if body != want {
		t.Fatalf("body = %q", body)
	}
	if rec.Header().Get("Content-Length") != strconv.Itoa(len(want)) {
		t.Errorf("content length = %s, want %d", rec.Header().Get("Content-Length"), len(want))
	}
	if rec.Header().Get("ETag") != "" {
		t.Error("ETag must be dropped once the body changes")
	}
}

func TestInjectWithoutBodyTag(t *testing.T) {
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<!doctype html><p>fragment"))
	})

	body := serve(Inject(true)(page), http.MethodGet).Body.String()
	if !strings.HasSuffix(body, Scripts(true)) {
		t.Errorf("expected script appended, got %q", body)
	}
}

func TestInjectSkipsNonHTML(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"body":"</body>"}`))
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("<body>missing</body>"))
		}},
		{"compressed", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("Content-Encoding", "gzip")
			w.Write([]byte("gzipped"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain := serve(tt.handler, http.MethodGet)
			injected := serve(Inject(true)(tt.handler), http.MethodGet)
			if plain.Body.String() != injected.Body.String() || plain.Code != injected.Code {
				t.Errorf("response changed: %d %q vs %d %q",
					plain.Code, plain.Body.String(), injected.Code, injected.Body.String())
			}
		})
	}
}

func TestInjectDisabled(t *testing.T) {
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<body></body>"))
	})
	if body := serve(Inject(false)(page), http.MethodGet).Body.String(); body != "<body></body>" {
		t.Errorf("disabled inject changed body: %q", body)
	}
}

func TestInjectEmptyHandler(t *testing.T) {
	rec := serve(Inject(true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), http.MethodGet)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("empty handler should stay empty, got %d %q", rec.Code, rec.Body.String())
	}
}
