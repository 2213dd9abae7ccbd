// Package api implements the HTTP control surface: a thin adapter
// over the Node Manager, Scheduler, Host Monitor and Fault Handler,
// mapping the operations in spec.md's endpoint table onto an
// http.ServeMux built with Go 1.22+ method+path patterns.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nexuscore/nexuscore/pkg/apierr"
	"github.com/nexuscore/nexuscore/pkg/fault"
	"github.com/nexuscore/nexuscore/pkg/hostmon"
	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/metrics"
	"github.com/nexuscore/nexuscore/pkg/nodemgr"
	"github.com/nexuscore/nexuscore/pkg/scheduler"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/rs/zerolog"
)

// Server is the HTTP control surface.
type Server struct {
	nodes   *nodemgr.Manager
	sched   *scheduler.Scheduler
	fault   *fault.Handler
	hostmon *hostmon.Monitor
	store   *storage.Typed
	logger  zerolog.Logger
	mux     *http.ServeMux
}

// NewServer wires a Server to its collaborators and registers every
// route in spec.md §6's endpoint table.
func NewServer(store storage.Store, nodes *nodemgr.Manager, sched *scheduler.Scheduler, fh *fault.Handler, hm *hostmon.Monitor) *Server {
	s := &Server{
		nodes:   nodes,
		sched:   sched,
		fault:   fh,
		hostmon: hm,
		store:   storage.NewTyped(store),
		logger:  log.WithComponent("api"),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /nodes", s.withMetrics(s.createNode))
	s.mux.HandleFunc("GET /nodes", s.withMetrics(s.listNodes))
	s.mux.HandleFunc("GET /nodes/{id}", s.withMetrics(s.getNode))
	s.mux.HandleFunc("PUT /nodes/{id}/status", s.withMetrics(s.updateNodeStatus))
	s.mux.HandleFunc("PUT /nodes/{id}/resources", s.withMetrics(s.updateNodeResources))
	s.mux.HandleFunc("POST /nodes/{id}/stop", s.withMetrics(s.stopNode))
	s.mux.HandleFunc("POST /nodes/{id}/restart", s.withMetrics(s.restartNode))
	s.mux.HandleFunc("POST /nodes/{id}/shutdown", s.withMetrics(s.shutdownNode))
	s.mux.HandleFunc("DELETE /nodes/{id}", s.withMetrics(s.deleteNode))
	s.mux.HandleFunc("GET /nodes/{id}/pods", s.withMetrics(s.listNodePods))
	s.mux.HandleFunc("GET /nodes/{id}/resources", s.withMetrics(s.getNodeResources))

	s.mux.HandleFunc("POST /pods", s.withMetrics(s.createPod))
	s.mux.HandleFunc("GET /pods", s.withMetrics(s.listPods))
	s.mux.HandleFunc("GET /pods/{id}", s.withMetrics(s.getPod))
	s.mux.HandleFunc("DELETE /pods/{id}", s.withMetrics(s.deletePod))

	s.mux.HandleFunc("POST /health/heartbeat/{id}", s.withMetrics(s.heartbeat))
	s.mux.HandleFunc("GET /health/cluster", s.withMetrics(s.clusterHealth))
	s.mux.HandleFunc("GET /health/nodes/{id}", s.withMetrics(s.nodeHealth))

	s.mux.HandleFunc("GET /host/resources", s.withMetrics(s.getHostResources))
	s.mux.HandleFunc("PUT /host/resources/limits", s.withMetrics(s.updateHostLimits))

	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.Handle("GET /health", metrics.HealthHandler())
	s.mux.Handle("GET /ready", metrics.ReadyHandler())
	s.mux.Handle("GET /live", metrics.LivenessHandler())
}

// Start runs the HTTP server until the process is signaled to stop
// or the given context is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withMetrics wraps a handler with request-count/duration instrumentation.
func (s *Server) withMetrics(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method, r.URL.Path)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rec.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps an apierr sentinel to a status code via errors.Is,
// per §7's propagation policy.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apierr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apierr.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, apierr.ErrNoCapacity):
		status = http.StatusServiceUnavailable
	case errors.Is(err, apierr.ErrRuntimeFailure), errors.Is(err, apierr.ErrStoreFailure):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
