package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/contractkit/internal/observability"
)

var errBoom = errors.New("boom")

func setupTestMeter(t *testing.T) (*observability.REDMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return red, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func counterTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, point := range sum.DataPoints {
		total += point.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	red, reader := setupTestMeter(t)

	red.RecordRequest(context.Background(), "flatten", observability.StatusOK, 100*time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), counterTotal(t, findMetric(rm, "contractkit.requests.total")))
	assert.NotNil(t, findMetric(rm, "contractkit.request.duration.seconds"))
	assert.Nil(t, findMetric(rm, "contractkit.errors.total"))
}

func TestREDMetrics_RecordRequestError(t *testing.T) {
	t.Parallel()

	red, reader := setupTestMeter(t)

	red.RecordRequest(context.Background(), "size", observability.StatusError, time.Second)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), counterTotal(t, findMetric(rm, "contractkit.errors.total")))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	red, reader := setupTestMeter(t)

	done := red.TrackInflight(context.Background(), "abi")
	assert.Equal(t, int64(1), counterTotal(t, findMetric(collectMetrics(t, reader), "contractkit.inflight.requests")))

	done()
	assert.Equal(t, int64(0), counterTotal(t, findMetric(collectMetrics(t, reader), "contractkit.inflight.requests")))
}

func TestRun_RecordsSpanAndMetrics(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	red, reader := setupTestMeter(t)

	err := observability.Run(context.Background(), tracer, red, "flatten", func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	err = observability.Run(context.Background(), tracer, red, "abi", func(context.Context) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "flatten", spans[0].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), counterTotal(t, findMetric(rm, "contractkit.requests.total")))
	assert.Equal(t, int64(1), counterTotal(t, findMetric(rm, "contractkit.errors.total")))
}

func TestRun_WithoutMetrics(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	called := false
	err = observability.Run(context.Background(), providers.Tracer, nil, "graph", func(context.Context) error {
		called = true

		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
