// Package frontend ships the browser half of auto-reload: a script that polls
// the health check endpoint and reloads the page once the token changes.
package frontend

import (
	_ "embed"
	"net/http"
)

//go:embed assets/reload.js
var reloadJS string

// ScriptPath is where Handler serves the standalone script.
const ScriptPath = "/__autoreload.js"

// ReloadJS returns the raw script source.
func ReloadJS() string { return reloadJS }

// Scripts returns the inline <script> block to embed in pages, or "" when
// auto-reload is disabled. Production builds pass false.
func Scripts(enabled bool) string {
	if !enabled {
		return ""
	}
	return "<script>\n" + reloadJS + "</script>\n"
}

// Handler serves the script as a standalone asset at ScriptPath.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(reloadJS))
	})
}
