package otel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goSSO "github.com/MrEthical07/goSSO"
)

type staticSource struct {
	signIns atomic.Uint64
	latency []uint64
	dropped uint64
}

func (s *staticSource) MetricsSnapshot() goSSO.MetricsSnapshot {
	return goSSO.MetricsSnapshot{
		Counters:   map[goSSO.MetricID]uint64{goSSO.MetricSignInSuccess: s.signIns.Load()},
		Histograms: map[goSSO.MetricID][]uint64{goSSO.MetricDecryptLatency: s.latency},
	}
}

func (s *staticSource) AuditDropped() uint64 { return s.dropped }

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

// collect flattens int64 points into name or name{le} keys.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	add := func(name string, dp metricdata.DataPoint[int64]) {
		key := name
		if le, ok := dp.Attributes.Value(attribute.Key("le")); ok {
			key += "{" + le.AsString() + "}"
		}
		out[key] = dp.Value
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp)
				}
			}
		}
	}
	return out
}

func TestExporterObservesSnapshot(t *testing.T) {
	reader, provider := newReader(t)
	src := &staticSource{latency: []uint64{1, 1, 1, 1, 1, 1, 1, 1}, dropped: 1}
	src.signIns.Store(3)

	exp, err := NewExporterFromSource(provider.Meter("gosso-test"), src)
	require.NoError(t, err)
	defer func() { require.NoError(t, exp.Close()) }()

	values := collect(t, reader)
	assert.Equal(t, int64(3), values["gosso_sign_in_success_total"])
	assert.Equal(t, int64(0), values["gosso_sign_up_success_total"])
	assert.Equal(t, int64(1), values["gosso_decrypt_latency_seconds_bucket{0.0001}"])
	assert.Equal(t, int64(4), values["gosso_decrypt_latency_seconds_bucket{0.001}"])
	assert.Equal(t, int64(8), values["gosso_decrypt_latency_seconds_bucket{+Inf}"])
	assert.Equal(t, int64(8), values["gosso_decrypt_latency_seconds_count"])
	assert.Equal(t, int64(1), values["gosso_audit_dropped_total"])
}

func TestCloseNilExporter(t *testing.T) {
	var exp *Exporter
	assert.NoError(t, exp.Close())
}

func TestExporterRejectsNil(t *testing.T) {
	_, provider := newReader(t)

	_, err := NewExporterFromSource(provider.Meter("gosso-test"), nil)
	assert.ErrorIs(t, err, ErrNilSource)

	_, err = NewExporterFromSource(nil, &staticSource{})
	assert.ErrorIs(t, err, ErrNilMeter)

	_, err = NewExporter(provider.Meter("gosso-test"), nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReader(t)
	src := &staticSource{latency: []uint64{1}}

	exp, err := NewExporterFromSource(provider.Meter("gosso-test"), src)
	require.NoError(t, err)
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.signIns.Add(1)
			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), collect(t, reader)["gosso_sign_in_success_total"])
}
