package middleware

import (
	"net/http"

	glog "github.com/spcent/autoreload/log"
)

// Recovery turns a panic into a 500 response and logs it.
func Recovery(logger glog.StructuredLogger) Middleware {
	if logger == nil {
		logger = glog.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorCtx(r.Context(), "panic recovered", glog.Fields{
						"panic":  rec,
						"method": r.Method,
						"path":   r.URL.Path,
					})
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
