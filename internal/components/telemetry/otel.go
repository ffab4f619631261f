package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelAPI forwards every report to an inner API while also recording it as an
// OpenTelemetry metric on the global meter provider.
type OtelAPI struct {
	inner    API
	broken   metric.Int64Counter
	warnings metric.Int64Counter
	counts   metric.Int64Histogram
}

// NewOtelAPI creates an OtelAPI, if an instrument fails to initialize it falls back
// to the noop instrument so reports still reach the inner API.
func NewOtelAPI(inner API) OtelAPI {
	meter := otel.Meter("portalbot-backend/telemetry")

	broken, err := meter.Int64Counter(
		"portal.reports.broken",
		metric.WithDescription("Number of broken component reports."),
	)
	if err != nil {
		inner.ReportBroken("telemetry.otel", err)
	}
	warnings, err := meter.Int64Counter(
		"portal.reports.warning",
		metric.WithDescription("Number of warning reports."),
	)
	if err != nil {
		inner.ReportBroken("telemetry.otel", err)
	}
	counts, err := meter.Int64Histogram(
		"portal.reports.count",
		metric.WithDescription("Point-in-time counts reported by components."),
	)
	if err != nil {
		inner.ReportBroken("telemetry.otel", err)
	}

	return OtelAPI{
		inner:    inner,
		broken:   broken,
		warnings: warnings,
		counts:   counts,
	}
}

func (o OtelAPI) ReportBroken(id string, params ...any) {
	if o.broken != nil {
		o.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	}
	o.inner.ReportBroken(id, params...)
}

func (o OtelAPI) ReportWarning(id string, params ...any) {
	if o.warnings != nil {
		o.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	}
	o.inner.ReportWarning(id, params...)
}

func (o OtelAPI) ReportDebug(msg string, params ...any) {
	o.inner.ReportDebug(msg, params...)
}

func (o OtelAPI) ReportCount(id string, count int64) {
	if o.counts != nil {
		o.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	}
	o.inner.ReportCount(id, count)
}
