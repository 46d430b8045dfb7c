package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementCounter(t *testing.T) {
	registry := NewRegistry()

	registry.IncrementCounter("messages_sent_total", nil, "messages sent")
	registry.IncrementCounter("messages_sent_total", nil, "messages sent")

	snapshot := registry.GetAll()
	counter, ok := snapshot.Counters["messages_sent_total"]
	require.True(t, ok)
	assert.Equal(t, float64(2), counter.Value)
	assert.Equal(t, Counter, counter.Type)
}

func TestCounterLabelsSeparateSeries(t *testing.T) {
	registry := NewRegistry()

	registry.IncrementCounter("send_failures_total", map[string]string{"code": "TRANSPORT_ERROR"}, "")
	registry.IncrementCounter("send_failures_total", map[string]string{"code": "INVALID_API_RESPONSE"}, "")
	registry.IncrementCounter("send_failures_total", map[string]string{"code": "TRANSPORT_ERROR"}, "")

	snapshot := registry.GetAll()
	require.Len(t, snapshot.Counters, 2)
	assert.Equal(t, float64(2), snapshot.Counters["send_failures_total,code=TRANSPORT_ERROR"].Value)
	assert.Equal(t, float64(1), snapshot.Counters["send_failures_total,code=INVALID_API_RESPONSE"].Value)
}

func TestAddToCounter(t *testing.T) {
	registry := NewRegistry()

	registry.AddToCounter("bytes_received_total", 128, nil, "")
	registry.AddToCounter("bytes_received_total", 64, nil, "")

	snapshot := registry.GetAll()
	assert.Equal(t, float64(192), snapshot.Counters["bytes_received_total"].Value)
}

func TestRecordTimer(t *testing.T) {
	registry := NewRegistry()

	registry.RecordTimer("send_duration", 10*time.Millisecond, nil)
	registry.RecordTimer("send_duration", 30*time.Millisecond, nil)

	snapshot := registry.GetAll()
	timer, ok := snapshot.Timers["send_duration"]
	require.True(t, ok)
	assert.Equal(t, int64(2), timer.Count)
	assert.InDelta(t, 10, timer.Min, 1)
	assert.InDelta(t, 30, timer.Max, 1)
	assert.InDelta(t, 20, timer.Average, 1)
}

func TestSetGauge(t *testing.T) {
	registry := NewRegistry()

	registry.SetGauge("feed_connected", 1, nil, "feed connection state")
	registry.SetGauge("feed_connected", 0, nil, "feed connection state")

	snapshot := registry.GetAll()
	gauge, ok := snapshot.Gauges["feed_connected"]
	require.True(t, ok)
	assert.Equal(t, float64(0), gauge.Value)
	assert.Equal(t, Gauge, gauge.Type)
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	registry := NewRegistry()
	registry.IncrementCounter("snapshots_applied_total", nil, "")

	snapshot := registry.GetAll()
	snapshot.Counters["snapshots_applied_total"].Value = 100

	assert.Equal(t, float64(1), registry.GetAll().Counters["snapshots_applied_total"].Value)
}

func TestMetricKeyOrderIndependent(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				registry.IncrementCounter("concurrent_total", nil, "")
				registry.RecordTimer("concurrent_duration", time.Millisecond, nil)
				registry.GetAll()
			}
		}()
	}
	wg.Wait()

	snapshot := registry.GetAll()
	assert.Equal(t, float64(1000), snapshot.Counters["concurrent_total"].Value)
	assert.Equal(t, int64(1000), snapshot.Timers["concurrent_duration"].Count)
}

func TestSnapshotUptime(t *testing.T) {
	registry := NewRegistry()
	assert.GreaterOrEqual(t, registry.GetAll().UptimeSeconds, float64(0))
}
