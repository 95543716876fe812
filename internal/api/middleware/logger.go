package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// crlf strips newline characters from request-derived values so a crafted
// path cannot forge extra log lines.
var crlf = strings.NewReplacer("\n", "", "\r", "")

// Logger logs one line per request: method, path, status, duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s",
			crlf.Replace(r.Method),
			crlf.Replace(r.URL.Path),
			rec.status,
			time.Since(start),
		)
	})
}

// statusRecorder captures the status code written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
