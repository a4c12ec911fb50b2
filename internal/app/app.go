package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/hcl"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	config     *Config
	registry   *registry.Registry
	model      *config.Model
	metrics    *prometheus.Registry
	httpServer *http.Server
	// running counts the graphs currently executing.
	running atomic.Int64
}

// NewApp is the constructor for the main application. It loads and validates
// every graph definition. Invalid configuration is a fatal startup error and
// panics; the entrypoint recovers it.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", reg.Kinds())

	model := config.NewModel()
	for _, loader := range []config.Loader{hcl.NewLoader(), yamlconfig.NewLoader()} {
		m, err := loader.Load(ctx, cfg.GraphPaths...)
		if err != nil {
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		model.Merge(m)
	}
	if err := model.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	if err := reg.Validate(ctx, model); err != nil {
		// A mismatch between code and configuration.
		panic(err)
	}
	logger.Debug("Configuration loaded and validated.", "graphs", len(model.Graphs), "nodes", model.NodeCount())

	return &App{
		ctx:      ctx,
		outW:     outW,
		config:   cfg,
		registry: reg,
		model:    model,
		metrics:  prometheus.NewRegistry(),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (app *App) Registry() *registry.Registry {
	return app.registry
}

// Model returns the loaded graph definitions.
func (app *App) Model() *config.Model {
	return app.model
}
