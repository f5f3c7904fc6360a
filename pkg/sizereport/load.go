package sizereport

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "contractkit/sizereport"

// Load reads the manifest at path and builds a report from it inside a
// sizereport.load span. A nil tracer disables tracing.
func Load(ctx context.Context, tracer trace.Tracer, path string, opts Options) (*Report, error) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	_, span := tracer.Start(ctx, "sizereport.load",
		trace.WithAttributes(attribute.String("sizereport.manifest", path)))
	defer span.End()

	report, err := load(path, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sizereport.limit", report.Limit),
		attribute.Int("sizereport.oversized", len(report.Oversized)),
		attribute.Int("sizereport.within_limit", len(report.WithinLimit)),
	)

	return report, nil
}

func load(path string, opts Options) (*Report, error) {
	manifest, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}

	return Build(manifest, opts)
}
