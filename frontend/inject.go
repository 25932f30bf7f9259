package frontend

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// Inject returns a middleware that adds the reload script to HTML responses,
// right before the closing </body> tag (or at the end when there is none).
// When enabled is false the handler is returned unchanged.
func Inject(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		snippet := []byte(Scripts(true))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newBufferedRecorder(w)
			next.ServeHTTP(rec, r)
			rec.flush(snippet, r.Method == http.MethodHead)
		})
	}
}

// bufferedRecorder holds HTML bodies back until the handler is done so the
// script can be spliced in; every other response is written straight through.
type bufferedRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	buffering   bool
	body        bytes.Buffer
}

func newBufferedRecorder(w http.ResponseWriter) *bufferedRecorder {
	return &bufferedRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (r *bufferedRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.statusCode = code

	h := r.ResponseWriter.Header()
	r.buffering = code == http.StatusOK &&
		h.Get("Content-Encoding") == "" &&
		strings.HasPrefix(strings.ToLower(h.Get("Content-Type")), "text/html")
	if !r.buffering {
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *bufferedRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		if r.ResponseWriter.Header().Get("Content-Type") == "" {
			r.ResponseWriter.Header().Set("Content-Type", http.DetectContentType(b))
		}
		r.WriteHeader(http.StatusOK)
	}
	if r.buffering {
		return r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

func (r *bufferedRecorder) flush(snippet []byte, head bool) {
	if !r.wroteHeader {
		r.WriteHeader(r.statusCode)
	}
	if !r.buffering {
		return
	}

	body := injectBefore(r.body.Bytes(), snippet)
	h := r.ResponseWriter.Header()
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Del("ETag")
	r.ResponseWriter.WriteHeader(r.statusCode)
	if !head {
		_, _ = r.ResponseWriter.Write(body)
	}
}

func injectBefore(body, snippet []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(body), []byte("</body>"))
	if idx < 0 {
		return append(append(make([]byte, 0, len(body)+len(snippet)), body...), snippet...)
	}
	out := make([]byte, 0, len(body)+len(snippet))
	out = append(out, body[:idx]...)
	out = append(out, snippet...)
	return append(out, body[idx:]...)
}
