package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// telemetry holds the providers handed to the executors.
type telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	shutdownFuncs  []func(context.Context) error
}

// setupTelemetry exports run metrics through reg and, when tracing is on,
// pretty-prints spans to w.
func setupTelemetry(reg prometheus.Registerer, tracing bool, w io.Writer) (*telemetry, error) {
	res := resource.NewSchemaless(attribute.String("service.name", "conduit"))
	t := &telemetry{tracerProvider: noop.NewTracerProvider()}

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.meterProvider = mp
	t.shutdownFuncs = append(t.shutdownFuncs, mp.Shutdown)

	if tracing {
		spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		t.tracerProvider = tp
		t.shutdownFuncs = append(t.shutdownFuncs, tp.Shutdown)
	}
	return t, nil
}

// shutdown flushes and stops every provider.
func (t *telemetry) shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdownFuncs {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
