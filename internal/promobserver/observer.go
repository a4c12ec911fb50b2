// Package promobserver turns run events into Prometheus metrics, for the
// /metrics endpoint of the health server.
package promobserver

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/node"
)

// Observer counts transitions, tracks running nodes and counts runs and
// storage warnings.
type Observer struct {
	transitions     *prometheus.CounterVec
	running         prometheus.Gauge
	runs            *prometheus.CounterVec
	storageWarnings prometheus.Counter
}

var _ events.Observer = (*Observer)(nil)

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Observer{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_node_transitions_total",
			Help: "Node status transitions, by target status.",
		}, []string{"status"}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "conduit_nodes_running",
			Help: "Nodes whose work function is executing.",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_runs_total",
			Help: "Graph runs, by lifecycle event.",
		}, []string{"event"}),
		storageWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "conduit_storage_warnings_total",
			Help: "Results that could not be persisted.",
		}),
	}
}

// OnEvent updates the collectors.
func (o *Observer) OnEvent(_ context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindTransition:
		o.transitions.WithLabelValues(ev.To.String()).Inc()
		if ev.To == node.StatusRunning {
			o.running.Inc()
		}
		if ev.From == node.StatusRunning {
			o.running.Dec()
		}
	case events.KindRunStarted, events.KindRunFinished:
		o.runs.WithLabelValues(ev.Kind.String()).Inc()
	case events.KindStorageWarning:
		o.storageWarnings.Inc()
	}
}
