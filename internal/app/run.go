package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/localexecutor"
	"github.com/specialistvlad/conduit/internal/localsession"
	"github.com/specialistvlad/conduit/internal/promobserver"
	"github.com/specialistvlad/conduit/internal/socketiosink"
)

// Run executes every loaded graph. Cancelling ctx skips the nodes that have
// not started yet.
func (app *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(app.ctx))
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.")

	app.healthCheckServer()
	defer app.closeHealthCheckServer()

	if app.model.NodeCount() == 0 {
		logger.Warn("No nodes found in any graph, execution not required.")
		return nil
	}

	factory := &localsession.SessionFactory{}
	if app.config.DryRun {
		return app.plan(ctx, factory)
	}

	tel, err := setupTelemetry(app.metrics, app.config.Trace, app.outW)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := tel.shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Telemetry shutdown failed.", "error", err)
		}
	}()

	store, closeStore, err := app.openResultStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close result store.", "error", err)
		}
	}()

	observers := []events.Observer{
		promobserver.New(app.metrics),
		events.ObserverFunc(app.trackRuns),
	}
	if app.config.SocketIOURL != "" {
		sink, err := socketiosink.Connect(ctx, socketiosink.Config{URL: app.config.SocketIOURL})
		if err != nil {
			// Live events are best effort.
			logger.Warn("Event sink unavailable, continuing without it.", "error", err)
		} else {
			defer sink.Close()
			observers = append(observers, sink)
		}
	}

	factory.Results = store
	factory.Options = []localexecutor.Option{
		localexecutor.WithConcurrency(app.config.Concurrency),
		localexecutor.WithNodeTimeout(app.config.NodeTimeout),
		localexecutor.WithFailFast(app.config.FailFast),
		localexecutor.WithInterruptOnCancel(app.config.InterruptOnCancel),
		localexecutor.WithObserver(observers...),
		localexecutor.WithTracerProvider(tel.tracerProvider),
		localexecutor.WithMeterProvider(tel.meterProvider),
	}

	logger.Info("🚀 Starting concurrent execution...", "graphs", len(app.model.Graphs), "parallel", app.config.Parallel)
	jobs, runErr := localsession.RunAll(ctx, factory, app.model, app.registry, app.config.Parallel)
	for _, job := range jobs {
		if job.Report == nil {
			continue
		}
		fmt.Fprintf(app.outW, "\ngraph %q (run %s)\n", job.Graph, job.Report.RunID)
		if err := job.Report.Render(app.outW); err != nil {
			logger.Warn("Failed to render report.", "graph", job.Graph, "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	logger.Info("🏁 Execution finished.")
	return nil
}

// trackRuns keeps the running graph count of the health endpoint current.
func (app *App) trackRuns(_ context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindRunStarted:
		app.running.Add(1)
	case events.KindRunFinished:
		app.running.Add(-1)
	}
}

// plan builds every graph and prints its execution plan without running it.
func (app *App) plan(ctx context.Context, factory *localsession.SessionFactory) error {
	for _, def := range app.model.Graphs {
		sess, err := factory.NewSession(ctx, def, app.registry)
		if err != nil {
			return fmt.Errorf("graph %q: %w", def.Name, err)
		}
		err = printPlan(ctx, app.outW, def.Name, sess.Graph())
		_ = sess.Close(ctx)
		if err != nil {
			return fmt.Errorf("graph %q: %w", def.Name, err)
		}
	}
	return nil
}
