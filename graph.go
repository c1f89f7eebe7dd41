// Package flowgraph implements a streaming dataflow engine for signal
// processing pipelines: blocks connected by typed sample streams over a
// bipartite-mapped ring buffer, driven to completion by per-block runners
// under a single flowgraph lifecycle.
package flowgraph

import (
	"context"
	"sync"
	"time"

	"github.com/flowgraph-go/flowgraph/internal/logging"
	"github.com/flowgraph-go/flowgraph/internal/mux"
	"github.com/flowgraph-go/flowgraph/internal/ringbuf"
	"github.com/flowgraph-go/flowgraph/internal/runner"
)

// defaultPollInterval bounds how long a threaded runner's ring-buffer waits
// block before re-checking its control mailbox and shutdown signal.
const defaultPollInterval = 20 * time.Millisecond

// State is the flowgraph's lifecycle state.
type State int

const (
	StateUnstarted State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Logger is the narrow logging surface the engine accepts.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Options configures a Flowgraph.
type Options struct {
	// Context is stored on the graph and defaults to context.Background().
	// Start and the runners do not watch it: cancelling it does not stop
	// any block; use Stop for that.
	Context context.Context

	// Logger receives lifecycle and per-block debug/info/error messages.
	// Defaults to the package logger at Info level, or Debug level if
	// Debug is set; pass a recording/no-op Logger in tests that want to
	// assert on or silence this traffic.
	Logger Logger

	// Debug enables the per-block evaluation-order dump (rate, annotated
	// input/output ports) logged once Start has propagated rates, and
	// raises the default Logger's level to Debug.
	Debug bool

	// Observer receives per-block process metrics. Defaults to a
	// MetricsObserver recording into the graph's own Metrics.
	Observer Observer

	// BufferCapacity is the ring buffer size, in bytes, allocated per
	// connection. Defaults to ringbuf.DefaultCapacity.
	BufferCapacity uint32

	// CPUAffinity optionally pins threaded runners to specific CPUs,
	// round-robin across blocks in topological order. Empty means no
	// pinning.
	CPUAffinity []int

	// PollInterval bounds how long a threaded runner's ring-buffer waits
	// block before re-checking its control mailbox and shutdown signal.
	PollInterval time.Duration

	// PlatformInitialize, if set, runs once during Start, after rate
	// propagation and before any block's Initialize. It is the hook point
	// for process-wide setup every block's Initialize can then assume is
	// already done (e.g. acquiring a shared hardware/accelerator
	// context). A failure here fails Start before any block is touched.
	PlatformInitialize func() error
}

// DefaultOptions returns sensible defaults for Options.
func DefaultOptions() Options {
	return Options{
		BufferCapacity: ringbuf.DefaultCapacity,
		PollInterval:   defaultPollInterval,
	}
}

// Flowgraph is a set of connected blocks driven through the
// Unstarted -> Starting -> Running -> Stopping -> Stopped lifecycle.
type Flowgraph struct {
	mu sync.Mutex

	opts Options
	ctx  context.Context

	blocks          []interface{}
	blockNames      map[interface{}]string
	connections     []connection
	connectedInputs map[Port]bool

	state State

	// Populated by Start.
	order    []Block
	rates    map[Block]float64
	muxes    map[Block]*mux.Mux
	runners  map[Block]runner.Runner
	buffers  []*ringbuf.Buffer
	started  []Block // blocks whose Initialize succeeded, in that order
	firstErr error
	wg       sync.WaitGroup
	metrics  *Metrics
	observer Observer
}

// New creates an empty Flowgraph.
func New(opts Options) *Flowgraph {
	if opts.BufferCapacity == 0 {
		opts.BufferCapacity = ringbuf.DefaultCapacity
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Logger == nil {
		logConfig := logging.DefaultConfig()
		if opts.Debug {
			logConfig.Level = logging.LevelDebug
		}
		opts.Logger = logging.NewLogger(logConfig)
	}
	metrics := NewMetrics()
	observer := opts.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}
	return &Flowgraph{
		opts:            opts,
		ctx:             ctx,
		blockNames:      make(map[interface{}]string),
		connectedInputs: make(map[Port]bool),
		metrics:         metrics,
		observer:        observer,
	}
}

// State returns the graph's current lifecycle state.
func (g *Flowgraph) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Metrics returns the graph's built-in metrics collector.
func (g *Flowgraph) Metrics() *Metrics {
	return g.metrics
}
