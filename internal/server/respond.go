package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/dashboard"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/export"
)

// envelope is the body of every successful JSON response.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("write response")
	}
}

// writeError maps service errors to a status: invalid input is the
// caller's fault, anything else is ours.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, dashboard.ErrInvalidInput) || errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// wantCSV reads the format query parameter. Only json and csv are served.
func wantCSV(r *http.Request) (bool, error) {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case "", "json":
		return false, nil
	case "csv":
		return true, nil
	default:
		return false, badRequest("unsupported format %q", f)
	}
}

// writeTable sends res as the JSON envelope or, with ?format=csv, as a CSV
// download named after the table and today's date.
func writeTable[T any](s *Server, w http.ResponseWriter, r *http.Request, name string, res dashboard.Result[T]) {
	asCSV, err := wantCSV(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !asCSV {
		s.writeJSON(w, http.StatusOK, envelope{Data: res.Rows, Message: res.Message})
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(name, s.now(), "csv")))
	if res.Message != "" {
		w.Header().Set("X-IDR-Message", res.Message)
	}
	if err := export.WriteCSV(w, res.Rows); err != nil {
		s.log.Error().Err(err).Str("table", name).Msg("write csv")
	}
}

// writeOne sends the first row of res as the envelope data, or null.
func writeOne[T any](s *Server, w http.ResponseWriter, res dashboard.Result[T]) {
	var data any
	if v, ok := res.First(); ok {
		data = v
	}
	s.writeJSON(w, http.StatusOK, envelope{Data: data, Message: res.Message})
}
