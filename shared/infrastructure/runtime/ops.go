package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mavencrawler/shared/application/ports"
)

// ReadyFunc reports whether the worker's dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// OpsServer serves liveness, readiness and Prometheus metrics for a
// long-running worker.
type OpsServer struct {
	addr     string
	ready    ReadyFunc
	gatherer prometheus.Gatherer
	logger   ports.Logger
	metrics  ports.Metrics
	server   *http.Server
}

func NewOpsServer(addr string, ready ReadyFunc, gatherer prometheus.Gatherer, obs ports.Observability) (*OpsServer, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.ops")
	if err != nil {
		return nil, fmt.Errorf("failed to create ops server: %w", err)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &OpsServer{
		addr:     addr,
		ready:    ready,
		gatherer: gatherer,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Handler returns the router; exposed for tests.
func (ops *OpsServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", "")
	})
	r.Get("/readyz", ops.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(ops.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (ops *OpsServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if ops.ready == nil {
		writeStatus(w, http.StatusOK, "ready", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := ops.ready(ctx); err != nil {
		ops.logger.Error("Readiness check failed", "error", err)
		ops.metrics.IncrementCounter("ops.readiness_failures", nil)
		writeStatus(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeStatus(w, http.StatusOK, "ready", "")
}

// Start listens until Stop is called.
func (ops *OpsServer) Start() error {
	ops.server = &http.Server{
		Addr:              ops.addr,
		Handler:           ops.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ops.logger.Info("Starting ops server", "address", ops.addr)
	if err := ops.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start ops server: %w", err)
	}
	return nil
}

func (ops *OpsServer) Stop(ctx context.Context) error {
	if ops.server == nil {
		return nil
	}
	ops.logger.Info("Shutting down ops server")
	return ops.server.Shutdown(ctx)
}

func writeStatus(w http.ResponseWriter, code int, status, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	body := map[string]string{"status": status}
	if reason != "" {
		body["error"] = reason
	}
	_ = json.NewEncoder(w).Encode(body)
}
