package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsFillsZeroValues(t *testing.T) {
	opts := DefaultOptions()
	require.EqualValues(t, 8<<20, opts.BufferCapacity)
	require.NotZero(t, opts.PollInterval)
}

func TestNewFillsZeroOptionsFields(t *testing.T) {
	g := New(Options{})
	require.EqualValues(t, 8<<20, g.opts.BufferCapacity)
	require.NotZero(t, g.opts.PollInterval)
	require.NotNil(t, g.ctx)
	require.NotNil(t, g.opts.Logger)
}

func TestNewStateStartsUnstarted(t *testing.T) {
	g := New(DefaultOptions())
	require.Equal(t, StateUnstarted, g.State())
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUnstarted: "unstarted",
		StateStarting:  "starting",
		StateRunning:   "running",
		StateStopping:  "stopping",
		StateStopped:   "stopped",
		State(99):      "unknown",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}

func TestMetricsReturnsGraphsOwnCollector(t *testing.T) {
	g := New(DefaultOptions())
	require.NotNil(t, g.Metrics())
}
