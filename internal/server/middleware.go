package server

import (
	"net/http"
	"time"
)

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and records it in the metrics under its
// route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		dur := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, sw.status, dur)

		ev := s.log.Info()
		if sw.status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", sw.status).
			Dur("duration", dur).
			Str("remote_addr", r.RemoteAddr).
			Msg("request")
	})
}
