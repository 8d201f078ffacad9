package rewrite

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tsreflect/tsreflect/internal/rewrite"

type telemetry struct {
	tracer trace.Tracer

	markers        metric.Int64Counter
	reflections    metric.Int64Counter
	cacheHits      metric.Int64Counter
	importsRenamed metric.Int64Counter
	failures       metric.Int64Counter
	duration       metric.Float64Histogram
}

// newTelemetry builds instruments from the given providers, falling back to
// the global ones.
func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	t := &telemetry{tracer: tp.Tracer(instrumentationName)}
	t.markers, _ = meter.Int64Counter("tsreflect.markers",
		metric.WithDescription("Marker calls replaced"),
		metric.WithUnit("{marker}"),
	)
	t.reflections, _ = meter.Int64Counter("tsreflect.reflections",
		metric.WithDescription("Types reflected"),
		metric.WithUnit("{type}"),
	)
	t.cacheHits, _ = meter.Int64Counter("tsreflect.cache.hits",
		metric.WithDescription("Markers answered from the per-file cache"),
		metric.WithUnit("{marker}"),
	)
	t.importsRenamed, _ = meter.Int64Counter("tsreflect.imports.renamed",
		metric.WithDescription("Sentinel import specifiers renamed"),
		metric.WithUnit("{specifier}"),
	)
	t.failures, _ = meter.Int64Counter("tsreflect.failures",
		metric.WithDescription("Files whose rewrite failed"),
		metric.WithUnit("{file}"),
	)
	t.duration, _ = meter.Float64Histogram("tsreflect.rewrite.duration",
		metric.WithDescription("Duration of one file rewrite"),
		metric.WithUnit("ms"),
	)
	return t
}

func (t *telemetry) record(ctx context.Context, res *FileResult, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("tsreflect.file", res.FileName))
	if err != nil {
		t.failures.Add(ctx, 1, attrs)
	} else {
		t.markers.Add(ctx, int64(len(res.Markers)), attrs)
		t.reflections.Add(ctx, int64(res.Reflections), attrs)
		t.cacheHits.Add(ctx, int64(res.CacheHits), attrs)
		t.importsRenamed.Add(ctx, int64(res.ImportsRenamed), attrs)
	}
	t.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
