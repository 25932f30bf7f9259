package health

import (
	"net/http"

	glog "github.com/spcent/autoreload/log"
)

// Path is where the token is served.
const Path = "/health_check"

// Handler answers GET and HEAD with the current token as text/plain.
// A nil source means NonceSource.
func Handler(src TokenSource, logger glog.StructuredLogger) http.Handler {
	if src == nil {
		src = NonceSource{}
	}
	if logger == nil {
		logger = glog.NewNoop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := src.Token()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write([]byte(token)); err != nil {
			logger.DebugCtx(r.Context(), "health check write failed", glog.Fields{"error": err})
		}
	})
}

// Register mounts Handler on mux at Path.
func Register(mux *http.ServeMux, src TokenSource, logger glog.StructuredLogger) {
	mux.Handle(Path, Handler(src, logger))
}
