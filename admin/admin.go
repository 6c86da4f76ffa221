// Package admin exposes a broker's health, metrics, and debug state
// over HTTP using github.com/go-chi/chi/v5, the same router the
// teacher stack standardizes on for its HTTP surfaces.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fsbroker/fsbroker/broker"
	"github.com/fsbroker/fsbroker/broker/eventlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /healthz, /metrics, /debug/watchers and /debug/events
// for a single Broker.
type Server struct {
	router chi.Router
	b      *broker.Broker
	log    *eventlog.Log
}

// New builds a Server. log may be nil, in which case /debug/events
// reports an empty list.
func New(b *broker.Broker, log *eventlog.Log) *Server {
	s := &Server{b: b, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/debug", func(dr chi.Router) {
		dr.Get("/watchers", s.handleDebugWatchers)
		dr.Get("/events", s.handleDebugEvents)
	})
	r.Post("/admin/unmount/{device}", s.handleTriggerUnmount)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats := s.b.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"pool_outstanding": stats.PoolOutstanding,
		"pool_capacity":    stats.PoolCapacity,
		"checked_at":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDebugWatchers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.b.Stats())
}

func (s *Server) handleDebugEvents(w http.ResponseWriter, r *http.Request) {
	if s.log == nil {
		writeJSON(w, http.StatusOK, []eventlog.Record{})
		return
	}
	kind := r.URL.Query().Get("kind")
	var (
		recs []*eventlog.Record
		err  error
	)
	if kind != "" {
		recs, err = s.log.ByKind(kind)
	} else {
		recs, err = s.log.All()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleTriggerUnmount drives the §4.8 unmount barrier over HTTP so the
// fseventsctl CLI can trigger it against a running server process.
func (s *Server) handleTriggerUnmount(w http.ResponseWriter, r *http.Request) {
	dev, err := strconv.ParseUint(chi.URLParam(r, "device"), 10, 64)
	if err != nil {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := s.b.TriggerUnmount(ctx, dev); err != nil {
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unmounted", "device": chi.URLParam(r, "device")})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
