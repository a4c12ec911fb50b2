package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/conduit/internal/ctxlog"
)

// healthStatus is the body of the /health endpoint.
type healthStatus struct {
	Status  string `json:"status"`
	Graphs  int    `json:"graphs"`
	Nodes   int    `json:"nodes"`
	Running int64  `json:"running_graphs"`
}

func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:  "ok",
		Graphs:  len(app.model.Graphs),
		Nodes:   app.model.NodeCount(),
		Running: app.running.Load(),
	})
}

// healthMux serves /health and the Prometheus /metrics endpoint.
func (app *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", app.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(app.metrics, promhttp.HandlerOpts{
		ErrorLog: slogAdapter{app.ctx},
	}))
	return mux
}

// slogAdapter routes promhttp errors to the context logger.
type slogAdapter struct{ ctx context.Context }

func (a slogAdapter) Println(v ...any) {
	ctxlog.FromContext(a.ctx).Error("Metrics handler error.", "error", fmt.Sprint(v...))
}

// healthCheckServer starts the health and metrics server in the background
// when a port is configured.
func (app *App) healthCheckServer() {
	logger := ctxlog.FromContext(app.ctx)
	if app.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server disabled.")
		return
	}

	addr := fmt.Sprintf(":%d", app.config.HealthcheckPort)
	app.httpServer = &http.Server{
		Addr:              addr,
		Handler:           app.healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "health", fmt.Sprintf("http://localhost%s/health", addr), "metrics", fmt.Sprintf("http://localhost%s/metrics", addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (app *App) closeHealthCheckServer() error {
	if app.httpServer == nil {
		return nil
	}
	logger := ctxlog.FromContext(app.ctx)

	ctx, cancel := context.WithTimeout(app.ctx, 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	return nil
}
