package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/carrel-io/ferry/pkg/events"
	"github.com/carrel-io/ferry/pkg/health"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/metrics"
)

// Server exposes the admin surface (liveness, readiness, metrics) and
// the event ingress the upstream repository notifies.
type Server struct {
	addr     string
	broker   *events.Broker
	checkers []health.Checker
	srv      *http.Server
	logger   zerolog.Logger
}

// NewServer creates the admin server. A nil broker disables the event
// ingress, which is what the one-shot commands use.
func NewServer(addr string, broker *events.Broker, checkers ...health.Checker) *Server {
	s := &Server{
		addr:     addr,
		broker:   broker,
		checkers: checkers,
		logger:   log.WithComponent("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", metrics.Handler())
	if broker != nil {
		r.Post("/events", s.handleEvent)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background until Stop is called
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("admin server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("admin server stopped")
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results, ready := health.CheckAll(r.Context(), s.checkers)

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	body := map[string]any{
		"ready":  ready,
		"checks": results,
	}
	writeJSON(w, status, body)
}

// handleEvent accepts an entity notification and hands it to the
// broker. Validation stops at well-formedness; admission policy runs in
// the listener pools.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var e events.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		metrics.EventsDroppedTotal.WithLabelValues("malformed").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed event"})
		return
	}
	if e.EntityID == "" || e.EntityType == "" {
		metrics.EventsDroppedTotal.WithLabelValues("incomplete").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event requires entity id and type"})
		return
	}

	s.broker.Publish(&e)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
