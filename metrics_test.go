package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotInitialState(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	require.Zero(t, snap.ProcessCalls)
	require.Zero(t, snap.SamplesConsumed)
	require.Zero(t, snap.SamplesProduced)
	require.Zero(t, snap.ErrorCount)
}

func TestMetricsRecordProcessAccumulates(t *testing.T) {
	m := NewMetrics()
	m.RecordProcess(100, 100, 1_000, false, true)
	m.RecordProcess(50, 25, 2_000, true, true)
	m.RecordProcess(10, 0, 500, false, false)

	snap := m.Snapshot()
	require.EqualValues(t, 3, snap.ProcessCalls)
	require.EqualValues(t, 160, snap.SamplesConsumed)
	require.EqualValues(t, 125, snap.SamplesProduced)
	require.EqualValues(t, 1, snap.EOFCount)
	require.EqualValues(t, 1, snap.ErrorCount)
	require.InDelta(t, 33.33, snap.ErrorRate, 0.1)
}

func TestMetricsLatencyBucketsAreCumulative(t *testing.T) {
	m := NewMetrics()
	m.RecordProcess(1, 1, 500, false, true)   // falls in every bucket >= 1us
	m.RecordProcess(1, 1, 50_000, false, true) // falls in buckets >= 100us

	snap := m.Snapshot()
	require.EqualValues(t, 2, snap.LatencyHistogram[len(LatencyBuckets)-1])
	require.EqualValues(t, 1, snap.LatencyHistogram[0])
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordProcess(10, 10, 1_000, false, true)
	m.Reset()

	snap := m.Snapshot()
	require.Zero(t, snap.ProcessCalls)
	require.Zero(t, snap.SamplesConsumed)
}

func TestNoOpObserverDiscardsObservations(t *testing.T) {
	var o Observer = NoOpObserver{}
	require.NotPanics(t, func() { o.ObserveProcess("block", 1, 1, 1, false, true) })
}

func TestMetricsObserverForwardsToMetrics(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)
	o.ObserveProcess("block", 10, 5, 1_000, false, true)

	snap := m.Snapshot()
	require.EqualValues(t, 1, snap.ProcessCalls)
	require.EqualValues(t, 10, snap.SamplesConsumed)
	require.EqualValues(t, 5, snap.SamplesProduced)
}
