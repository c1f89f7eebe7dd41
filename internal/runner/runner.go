// Package runner implements the two ways a flowgraph drives a leaf block:
// the threaded runner, which owns a dedicated goroutine that repeatedly
// calls the block's process function, and the raw runner, for blocks that
// need to drive their own loop (e.g. a source blocking on hardware I/O).
//
// Both runners expose the same spawn/stop/join/call surface, grounded on
// the teacher's queue.Runner lifecycle (Start/Stop/Close) plus its
// ioLoop/stubLoop split between a real processing loop and a
// simulation-mode one that just waits on cancellation.
package runner

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/flowgraph-go/flowgraph/internal/affinity"
	"github.com/flowgraph-go/flowgraph/internal/mux"
	"github.com/flowgraph-go/flowgraph/internal/ringbuf"
)

// ErrStopped is returned by Call when the runner has already been stopped.
var ErrStopped = errors.New("runner: stopped")

// Logger is the narrow logging surface runners accept; satisfied by
// *logging.Logger without this package importing it directly.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Block is the subset of a block's contract a threaded runner drives.
// Initialize/Deinitialize are the graph's responsibility, run centrally
// before any runner is spawned and after every runner has joined; the
// runner only ever sees Process.
type Block interface {
	Process(bufs mux.Buffers) (consumed []int, produced []int, eof bool, err error)
}

// RawBlock is a block that manages its own run loop. stop is closed when
// the runner wants the block to return.
type RawBlock interface {
	Start(stop <-chan struct{}) error
}

// Runner is the common control surface for both runner kinds.
type Runner interface {
	Spawn() error
	Stop()
	Join()
	Err() error
	Call(fn func()) error
}

type call struct {
	fn   func()
	done chan struct{}
}

// Config configures a ThreadedRunner.
type Config struct {
	Block        Block
	Mux          *mux.Mux
	Logger       Logger
	CPU          int // >= 0 pins the runner's OS thread to this CPU
	PollInterval time.Duration
}

// ThreadedRunner runs a block's process function in a loop on its own
// goroutine, polling for control calls and shutdown between iterations.
type ThreadedRunner struct {
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
	mailbox chan call
	wg      sync.WaitGroup

	mu  sync.Mutex
	err error
}

// NewThreaded creates a ThreadedRunner. PollInterval defaults to 20ms if
// unset; it bounds how long the runner's ring-buffer waits block before
// re-checking the mailbox and shutdown signal.
func NewThreaded(cfg Config) *ThreadedRunner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ThreadedRunner{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		mailbox: make(chan call),
	}
}

// Spawn starts the runner's goroutine to drive Process. The block's
// Initialize is assumed to have already run (by the graph, before any
// runner exists).
func (r *ThreadedRunner) Spawn() error {
	r.wg.Add(1)
	go r.loop()
	return nil
}

func (r *ThreadedRunner) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first error the block's loop terminated with, if any.
// Callers should Join before reading it.
func (r *ThreadedRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *ThreadedRunner) loop() {
	defer r.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r.cfg.CPU >= 0 {
		if err := affinity.Set(r.cfg.CPU); err != nil && r.cfg.Logger != nil {
			r.cfg.Logger.Debugf("runner: failed to set CPU affinity to %d: %v", r.cfg.CPU, err)
		}
	}

	for {
		select {
		case <-r.ctx.Done():
			r.cfg.Mux.SetEOS()
			return
		case c := <-r.mailbox:
			c.fn()
			close(c.done)
			continue
		default:
		}

		bufs, err := r.cfg.Mux.GetWithTimeout(r.cfg.PollInterval)
		if errors.Is(err, ringbuf.ErrTimeout) {
			continue
		}
		if err != nil {
			// End of stream propagates quietly; a broken downstream
			// neighbour is a real error worth surfacing.
			if !errors.Is(err, ringbuf.ErrEndOfStream) {
				r.setErr(err)
			}
			r.cfg.Mux.SetEOS()
			return
		}

		consumed, produced, eof, err := r.cfg.Block.Process(bufs)
		r.cfg.Mux.Update(consumed, produced)
		if err != nil {
			r.setErr(err)
			r.cfg.Mux.SetEOS()
			return
		}
		if eof {
			r.cfg.Mux.SetEOS()
			return
		}
	}
}

// Stop asks the runner to exit its loop at the next opportunity. It does
// not block; use Join to wait for completion.
func (r *ThreadedRunner) Stop() {
	r.cancel()
}

// Join blocks until the runner's goroutine has exited.
func (r *ThreadedRunner) Join() {
	r.wg.Wait()
}

// Call schedules fn to run on the runner's own goroutine and blocks until
// it has executed, giving external callers a way to safely touch block
// state the block itself isn't otherwise synchronizing.
func (r *ThreadedRunner) Call(fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case r.mailbox <- c:
	case <-r.ctx.Done():
		return ErrStopped
	}
	select {
	case <-c.done:
		return nil
	case <-r.ctx.Done():
		return ErrStopped
	}
}

// RawConfig configures a RawRunner.
type RawConfig struct {
	Block  RawBlock
	Logger Logger
}

// RawRunner runs a block that drives its own loop, only handing it a
// shutdown channel to honor. It cannot service Call, since the block
// owns its goroutine's control flow end to end.
type RawRunner struct {
	cfg    RawConfig
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

// NewRaw creates a RawRunner.
func NewRaw(cfg RawConfig) *RawRunner {
	return &RawRunner{cfg: cfg, stopCh: make(chan struct{})}
}

// Spawn starts the block's own Start loop on a dedicated goroutine. The
// block's Initialize is assumed to have already run (by the graph, before
// any runner exists).
func (r *RawRunner) Spawn() error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.cfg.Block.Start(r.stopCh); err != nil {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		}
	}()
	return nil
}

// Stop closes the block's stop channel. The block is responsible for
// returning from Start promptly once it observes this.
func (r *RawRunner) Stop() {
	r.once.Do(func() { close(r.stopCh) })
}

// Join blocks until the block's Start call has returned.
func (r *RawRunner) Join() {
	r.wg.Wait()
}

// Err returns the error Start terminated with, if any.
func (r *RawRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Call always fails: raw blocks own their goroutine and accept no
// cross-thread calls.
func (r *RawRunner) Call(fn func()) error {
	return errors.New("runner: raw blocks do not support Call")
}

var (
	_ Runner = (*ThreadedRunner)(nil)
	_ Runner = (*RawRunner)(nil)
)
