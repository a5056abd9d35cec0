package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/joao-fontenele/orderflow-console/internal/domain"
)

// InitMeterProvider initializes the Prometheus exporter, the MeterProvider and
// Go runtime metrics. It returns an http.Handler for the /metrics endpoint and
// a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(serviceName, serviceVersion)),
	)

	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

type ConsoleMetrics struct {
	operations metric.Int64Counter
}

func NewConsoleMetrics(mp metric.MeterProvider) (*ConsoleMetrics, error) {
	meter := mp.Meter("orderflow-console/console")

	operations, err := meter.Int64Counter("console.operations",
		metric.WithDescription("Settled console operations by operation and outcome."),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return &ConsoleMetrics{operations: operations}, nil
}

func (m *ConsoleMetrics) RecordOperation(ctx context.Context, op domain.Operation, outcome string) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("outcome", outcome),
	))
}
