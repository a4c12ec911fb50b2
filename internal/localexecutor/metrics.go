package localexecutor

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/specialistvlad/conduit/internal/localexecutor"

type instruments struct {
	nodeDuration   metric.Float64Histogram
	nodeOutcomes   metric.Int64Counter
	activeNodes    metric.Int64UpDownCounter
	runDuration    metric.Float64Histogram
	storageFailure metric.Int64Counter
}

// newInstruments creates the run metrics. A failed instrument is logged and
// left nil; recording on it is skipped.
func newInstruments(ctx context.Context, mp metric.MeterProvider) *instruments {
	meter := mp.Meter(instrumentationName)
	ins := &instruments{}
	var initErrors []string

	var err error
	ins.nodeDuration, err = meter.Float64Histogram("conduit_node_duration_seconds",
		metric.WithDescription("Time spent executing each node"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "node_duration: "+err.Error())
	}

	ins.nodeOutcomes, err = meter.Int64Counter("conduit_node_outcomes_total",
		metric.WithDescription("Number of finished nodes by outcome"),
	)
	if err != nil {
		initErrors = append(initErrors, "node_outcomes: "+err.Error())
	}

	ins.activeNodes, err = meter.Int64UpDownCounter("conduit_active_nodes",
		metric.WithDescription("Number of currently executing nodes"),
	)
	if err != nil {
		initErrors = append(initErrors, "active_nodes: "+err.Error())
	}

	ins.runDuration, err = meter.Float64Histogram("conduit_run_duration_seconds",
		metric.WithDescription("Total run time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "run_duration: "+err.Error())
	}

	ins.storageFailure, err = meter.Int64Counter("conduit_storage_failures_total",
		metric.WithDescription("Number of results that could not be persisted"),
	)
	if err != nil {
		initErrors = append(initErrors, "storage_failures: "+err.Error())
	}

	if len(initErrors) > 0 {
		ctxlog.FromContext(ctx).Error("Failed to initialize some run metrics.",
			slog.Int("failed_count", len(initErrors)),
			slog.Any("errors", initErrors),
		)
	}
	return ins
}
