package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/dashboard"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/fetch"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/metrics"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
)

// Server exposes the dashboard reads as a JSON/CSV HTTP API.
type Server struct {
	svc     *dashboard.Service
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Server. m may be nil, which disables /metrics.
func New(svc *dashboard.Service, log zerolog.Logger, m *metrics.Metrics) *Server {
	return &Server{
		svc:     svc,
		log:     log.With().Str("component", "http").Logger(),
		metrics: m,
		now:     time.Now,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/snapshot", s.snapshot)
	mux.HandleFunc("GET /api/overview", s.overview)
	mux.HandleFunc("GET /api/providers", s.providers)
	mux.HandleFunc("GET /api/states", s.states)
	mux.HandleFunc("GET /api/specialties", s.specialties)
	mux.HandleFunc("GET /api/payers", s.payers)
	mux.HandleFunc("GET /api/quarterly", s.quarterly)

	mux.HandleFunc("GET /api/states/{state}/providers", s.stateProviders)
	mux.HandleFunc("GET /api/states/{state}/specialties", s.stateSpecialties)
	mux.HandleFunc("GET /api/states/{state}/payers", s.statePayers)
	mux.HandleFunc("GET /api/states/{state}/quarterly", s.stateQuarterly)

	mux.HandleFunc("GET /api/search", s.search)
	mux.HandleFunc("GET /api/disputes", s.disputes)
	mux.HandleFunc("GET /api/providers/{name}/investigation", s.investigate)
	mux.HandleFunc("GET /api/risk", s.risk)
	mux.HandleFunc("GET /api/compare", s.compare)
	mux.HandleFunc("GET /api/view", s.view)

	return s.instrument(mux)
}

// Run serves h on addr until ctx is cancelled, then drains in-flight
// requests.
func Run(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	writeOne(s, w, s.svc.Snapshot(r.Context()))
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	writeTable(s, w, r, "overview", s.svc.Overview(r.Context()))
}

func (s *Server) providers(w http.ResponseWriter, r *http.Request) {
	writeTable(s, w, r, "providers", s.svc.Providers(r.Context()))
}

func (s *Server) states(w http.ResponseWriter, r *http.Request) {
	writeTable(s, w, r, "states", s.svc.States(r.Context()))
}

func (s *Server) specialties(w http.ResponseWriter, r *http.Request) {
	writeTable(s, w, r, "specialties", s.svc.Specialties(r.Context()))
}

func (s *Server) payers(w http.ResponseWriter, r *http.Request) {
	writeTable(s, w, r, "payers", s.svc.Payers(r.Context()))
}

func (s *Server) quarterly(w http.ResponseWriter, r *http.Request) {
	writeTable(s, w, r, "quarterly", s.svc.Quarterly(r.Context()))
}

func (s *Server) stateProviders(w http.ResponseWriter, r *http.Request) {
	state := normalize.State(r.PathValue("state"))
	res, err := s.svc.StateProviders(r.Context(), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, state+"_providers", res)
}

func (s *Server) stateSpecialties(w http.ResponseWriter, r *http.Request) {
	state := normalize.State(r.PathValue("state"))
	res, err := s.svc.StateSpecialties(r.Context(), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, state+"_specialties", res)
}

func (s *Server) statePayers(w http.ResponseWriter, r *http.Request) {
	state := normalize.State(r.PathValue("state"))
	res, err := s.svc.StatePayers(r.Context(), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, state+"_payers", res)
}

func (s *Server) stateQuarterly(w http.ResponseWriter, r *http.Request) {
	state := normalize.State(r.PathValue("state"))
	res, err := s.svc.StateQuarterly(r.Context(), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, state+"_quarterly", res)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SearchProviders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, "provider_search", res)
}

func (s *Server) disputes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := fetch.Filter{
		Provider:  q.Get("provider"),
		State:     q.Get("state"),
		Specialty: q.Get("specialty"),
	}
	res, err := s.svc.Disputes(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, "disputes", res)
}

func (s *Server) investigate(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Investigate(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeOne(s, w, res)
}

func (s *Server) risk(w http.ResponseWriter, r *http.Request) {
	minScore := -1
	if v := strings.TrimSpace(r.URL.Query().Get("min_score")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, badRequest("min_score must be an integer within 0..100"))
			return
		}
		minScore = n
	}
	res, err := s.svc.RiskFlags(r.Context(), minScore)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, "risk_flags", res)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Compare(r.Context(), r.URL.Query()["provider"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeTable(s, w, r, "provider_comparison", res)
}

// view serves the dashboard recomputed over repeated quarter, state,
// specialty and payer parameters. As CSV it sends one part of the view,
// chosen with ?table= (providers by default).
func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	asCSV, err := wantCSV(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	res, err := s.svc.FilteredView(r.Context(), aggregate.View{
		Quarters:    q["quarter"],
		States:      q["state"],
		Specialties: q["specialty"],
		Payers:      q["payer"],
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !asCSV {
		writeOne(s, w, res)
		return
	}

	v, found := res.First()
	part := q.Get("table")
	switch part {
	case "", "providers":
		writeTable(s, w, r, "view_providers", viewPart(v.Providers, res.Message))
	case "overview":
		var rows []model.Overview
		if found {
			rows = append(rows, v.Overview)
		}
		writeTable(s, w, r, "view_overview", viewPart(rows, res.Message))
	case "states":
		writeTable(s, w, r, "view_states", viewPart(v.States, res.Message))
	case "specialties":
		writeTable(s, w, r, "view_specialties", viewPart(v.Specialties, res.Message))
	case "payers":
		writeTable(s, w, r, "view_payers", viewPart(v.Payers, res.Message))
	case "quarterly":
		writeTable(s, w, r, "view_quarterly", viewPart(v.Quarterly, res.Message))
	default:
		s.writeError(w, badRequest("unknown view table %q", part))
	}
}

func viewPart[T any](rows []T, msg string) dashboard.Result[T] {
	if rows == nil {
		rows = []T{}
	}
	return dashboard.Result[T]{Rows: rows, Message: msg}
}
