package flowgraph

import (
	"fmt"
	"io"
	"time"

	"github.com/flowgraph-go/flowgraph/internal/logging"
	"github.com/flowgraph-go/flowgraph/internal/mux"
	"github.com/flowgraph-go/flowgraph/internal/rc"
	"github.com/flowgraph-go/flowgraph/internal/ringbuf"
	"github.com/flowgraph-go/flowgraph/internal/runner"
)

// Start runs the full startup sequence: validate, propagate rates, wire
// ring buffers and muxes, then spawn one runner per block. It returns once
// every block is initialized and running.
func (g *Flowgraph) Start() error {
	g.mu.Lock()
	if g.state != StateUnstarted {
		g.mu.Unlock()
		return NewError("Start", ErrCodeAlreadyRunning, fmt.Sprintf("graph is %s, not unstarted", g.state))
	}
	g.state = StateStarting
	g.mu.Unlock()

	if err := g.validate(); err != nil {
		return err
	}
	if err := g.propagateRates(); err != nil {
		return err
	}
	if g.opts.Debug {
		g.dumpEvaluationOrder()
	}

	if g.opts.PlatformInitialize != nil {
		if err := g.opts.PlatformInitialize(); err != nil {
			return WrapError("Start", err)
		}
	}

	for _, b := range g.order {
		if err := b.Initialize(); err != nil {
			g.deinitializeStarted()
			return WrapError("Start", NewBlockError("Start", g.name(b), ErrCodeInitializeFailed, err.Error()))
		}
		g.started = append(g.started, b)
		g.blockLogger(b).Debugf("initialized")
	}

	readers := make(map[Port]*ringbuf.Reader)
	writers := make(map[Port]*ringbuf.Writer)
	readerCount := make(map[Port]int)
	// registries holds one *rc.Registry per connection whose payload is
	// refcounted, shared between the producing mux and every consuming mux
	// so a header Pinned on the write side resolves on the read side
	// (spec §4.3's refcounted bookkeeping; see internal/rc's Registry).
	registries := make(map[Port]*rc.Registry)

	for _, c := range g.connections {
		buf, err := ringbuf.New(g.opts.BufferCapacity, len(c.To))
		if err != nil {
			g.deinitializeStarted()
			return WrapError("Start", err)
		}
		g.buffers = append(g.buffers, buf)
		writers[c.From] = buf.Writer()
		readerCount[c.From] = len(c.To)
		fromType := c.From.Owner.(Block).TypeSignature().Outputs[c.From.Index]
		if fromType.IsRefCounted() {
			registries[c.From] = rc.NewRegistry()
		}
		for _, to := range c.To {
			r, err := buf.AddReader()
			if err != nil {
				g.deinitializeStarted()
				return WrapError("Start", err)
			}
			readers[to] = r
		}
	}

	g.muxes = make(map[Block]*mux.Mux, len(g.order))
	g.runners = make(map[Block]runner.Runner, len(g.order))

	// upstreamOf maps each input port to the output port feeding it, so an
	// input's registry can be looked up as the registry of its upstream
	// connection rather than one keyed by itself.
	upstreamOf := make(map[Port]Port, len(g.connections))
	for _, c := range g.connections {
		for _, to := range c.To {
			upstreamOf[to] = c.From
		}
	}

	for _, b := range g.order {
		sig := b.TypeSignature()

		inReaders := make([]*ringbuf.Reader, len(sig.Inputs))
		inTypes := make([]DataType, len(sig.Inputs))
		inRegistries := make([]*rc.Registry, len(sig.Inputs))
		for i, t := range sig.Inputs {
			p := Port{Owner: b, Dir: Input, Index: i}
			inReaders[i] = readers[p]
			inTypes[i] = t
			inRegistries[i] = registries[upstreamOf[p]]
		}

		outWriters := make([]*ringbuf.Writer, len(sig.Outputs))
		outTypes := make([]DataType, len(sig.Outputs))
		outReaderCounts := make([]int, len(sig.Outputs))
		outRegistries := make([]*rc.Registry, len(sig.Outputs))
		for i, t := range sig.Outputs {
			p := Port{Owner: b, Dir: Output, Index: i}
			if _, ok := writers[p]; !ok {
				// No Connect reached this output: give it a reader-less
				// buffer so the mux discards what the block produces there.
				buf, err := ringbuf.New(g.opts.BufferCapacity, 0)
				if err != nil {
					g.deinitializeStarted()
					return WrapError("Start", err)
				}
				g.buffers = append(g.buffers, buf)
				writers[p] = buf.Writer()
				if t.IsRefCounted() {
					registries[p] = rc.NewRegistry()
				}
			}
			outWriters[i] = writers[p]
			outTypes[i] = t
			outReaderCounts[i] = readerCount[p]
			outRegistries[i] = registries[p]
		}

		m := mux.New(inReaders, inTypes, inRegistries, outWriters, outTypes, outReaderCounts, outRegistries)
		g.muxes[b] = m
	}

	cpuFor := func(i int) int {
		if len(g.opts.CPUAffinity) == 0 {
			return -1
		}
		return g.opts.CPUAffinity[i%len(g.opts.CPUAffinity)]
	}

	for i, b := range g.order {
		var rn runner.Runner
		if rb, ok := b.(RawBlock); ok {
			rn = runner.NewRaw(runner.RawConfig{Block: rawBlockAdapter{rb}, Logger: g.blockLogger(b)})
		} else {
			rn = runner.NewThreaded(runner.Config{
				Block:        threadedBlockAdapter{b: b, name: g.name(b), observer: g.observer},
				Mux:          g.muxes[b],
				Logger:       g.blockLogger(b),
				CPU:          cpuFor(i),
				PollInterval: g.opts.PollInterval,
			})
		}
		g.runners[b] = rn
		if err := rn.Spawn(); err != nil {
			g.deinitializeStarted()
			return WrapError("Start", err)
		}
		g.wg.Add(1)
		go func(rn runner.Runner) {
			defer g.wg.Done()
			rn.Join()
			if err := rn.Err(); err != nil {
				g.mu.Lock()
				if g.firstErr == nil {
					g.firstErr = err
				}
				g.mu.Unlock()
			}
		}(rn)
	}

	g.mu.Lock()
	g.state = StateRunning
	g.mu.Unlock()
	g.opts.Logger.Infof("flowgraph: started, %d blocks running", len(g.order))
	return nil
}

// blockLogger returns a Logger scoped to b's name, using opts.Logger's own
// ForBlock when opts.Logger is the package's own *logging.Logger,
// falling back to the unscoped logger for a caller-supplied one that
// doesn't support scoping.
func (g *Flowgraph) blockLogger(b Block) Logger {
	if lg, ok := g.opts.Logger.(*logging.Logger); ok {
		return lg.ForBlock(g.name(b))
	}
	return g.opts.Logger
}

// deinitializeStarted rolls back every block whose Initialize has already
// succeeded, in reverse order, when Start fails partway through. Errors from
// Deinitialize are logged, not returned: the caller is already propagating
// the initialize failure and a teardown error must not mask it.
func (g *Flowgraph) deinitializeStarted() {
	for i := len(g.started) - 1; i >= 0; i-- {
		b := g.started[i]
		if err := b.Deinitialize(); err != nil {
			g.opts.Logger.Errorf("flowgraph: deinitialize %s during rollback: %v", g.name(b), err)
		}
	}
	g.started = nil
}

// dumpEvaluationOrder logs, per spec's debug option, one line per block in
// evaluation order: its rate, and its input/output ports annotated with
// the upstream block/port feeding each input.
func (g *Flowgraph) dumpEvaluationOrder() {
	upstream := make(map[Port]Port, len(g.connections))
	for _, c := range g.connections {
		for _, to := range c.To {
			upstream[to] = c.From
		}
	}
	for _, b := range g.order {
		sig := b.TypeSignature()
		name := g.name(b)
		for i, t := range sig.Inputs {
			p := Port{Owner: b, Dir: Input, Index: i}
			if up, ok := upstream[p]; ok {
				g.opts.Logger.Debugf("flowgraph: %s rate=%g in[%d] %s <- %s.%s", name, g.rates[b], i, t, g.name(up.Owner), up.String())
			}
		}
		for i, t := range sig.Outputs {
			g.opts.Logger.Debugf("flowgraph: %s rate=%g out[%d] %s", name, g.rates[b], i, t)
		}
	}
}

// threadedBlockAdapter satisfies runner.Block using a Block, discarding the
// lifecycle methods the runner package doesn't need (Initialize/Deinitialize
// run centrally in the graph's Start/Wait), and records each process call's
// metrics through the graph's Observer.
type threadedBlockAdapter struct {
	b        Block
	name     string
	observer Observer
}

func (a threadedBlockAdapter) Process(bufs mux.Buffers) ([]int, []int, bool, error) {
	start := time.Now()
	consumed, produced, eof, err := a.b.Process(bufs)
	if a.observer != nil {
		var totalConsumed, totalProduced uint64
		for _, c := range consumed {
			totalConsumed += uint64(c)
		}
		for _, p := range produced {
			totalProduced += uint64(p)
		}
		a.observer.ObserveProcess(a.name, totalConsumed, totalProduced, uint64(time.Since(start).Nanoseconds()), eof, err == nil)
	}
	return consumed, produced, eof, err
}

type rawBlockAdapter struct{ b RawBlock }

func (a rawBlockAdapter) Start(stop <-chan struct{}) error {
	return a.b.Start(stop)
}

// Wait blocks until every block has stopped running (either by reaching
// end of stream naturally or via Stop), deinitializes every block in
// reverse evaluation order, and returns the first error any block's loop
// terminated with.
func (g *Flowgraph) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	started := g.started
	g.started = nil
	g.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		b := started[i]
		if err := b.Deinitialize(); err != nil {
			g.opts.Logger.Errorf("flowgraph: deinitialize %s: %v", g.name(b), err)
			g.mu.Lock()
			if g.firstErr == nil {
				g.firstErr = WrapError("Wait", NewBlockError("Wait", g.name(b), ErrCodeIOErrorFallback, err.Error()))
			}
			g.mu.Unlock()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateStopped
	return g.firstErr
}

// Stop asks every block to exit its loop at the next opportunity, then
// waits for the graph to finish exactly as Wait does and returns Wait's
// result.
func (g *Flowgraph) Stop() error {
	g.mu.Lock()
	if g.state != StateRunning {
		g.mu.Unlock()
		return NewError("Stop", ErrCodeNotRunning, fmt.Sprintf("graph is %s, not running", g.state))
	}
	g.state = StateStopping
	g.mu.Unlock()

	for _, rn := range g.runners {
		rn.Stop()
	}
	return g.Wait()
}

// Run starts the graph and blocks until it completes.
func (g *Flowgraph) Run() error {
	if err := g.Start(); err != nil {
		return err
	}
	return g.Wait()
}

// Call runs fn on target's own runner goroutine and blocks until it has
// executed, giving external callers a way to safely touch block state
// outside of Process. If target is a composite, Call dispatches directly
// to the composite, which re-enters Call for each of its inner blocks.
func (g *Flowgraph) Call(target interface{}, fn func()) error {
	if cb, ok := target.(*CompositeBlock); ok {
		return cb.Call(g, fn)
	}
	b, ok := target.(Block)
	if !ok {
		return NewError("Call", ErrCodeBlockNotFound, "target is not a block or composite")
	}
	g.mu.Lock()
	rn, ok := g.runners[b]
	g.mu.Unlock()
	if !ok {
		return NewError("Call", ErrCodeBlockNotFound, "block is not part of a running graph")
	}
	return rn.Call(fn)
}

// Dump writes a human-readable summary of the graph's blocks, connections
// and current state, for debugging.
func (g *Flowgraph) Dump(w io.Writer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := fmt.Fprintf(w, "flowgraph: state=%s blocks=%d connections=%d\n", g.state, len(g.blocks), len(g.connections)); err != nil {
		return err
	}
	for _, c := range g.connections {
		var to []string
		for _, t := range c.To {
			to = append(to, fmt.Sprintf("%s.%s", g.name(t.Owner), t.String()))
		}
		if _, err := fmt.Fprintf(w, "  %s.%s -> %v\n", g.name(c.From.Owner), c.From.String(), to); err != nil {
			return err
		}
	}
	return nil
}
