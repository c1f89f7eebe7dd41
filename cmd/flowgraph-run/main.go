package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowgraph-go/flowgraph"
	"github.com/flowgraph-go/flowgraph/blocks"
	"github.com/flowgraph-go/flowgraph/internal/logging"
)

func main() {
	var (
		count   = flag.Int64("count", 1<<20, "number of bytes the source emits before end of stream")
		verbose = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	src := blocks.NewConstSource([]byte{0x00, 0xFF}, *count)
	inv := blocks.NewInverter()
	sink := blocks.NewCollectorSink()

	g := flowgraph.New(flowgraph.DefaultOptions())

	if err := g.AddBlock("source", src); err != nil {
		logger.Error("failed to add source", "error", err)
		os.Exit(1)
	}
	if err := g.AddBlock("inverter", inv); err != nil {
		logger.Error("failed to add inverter", "error", err)
		os.Exit(1)
	}
	if err := g.AddBlock("sink", sink); err != nil {
		logger.Error("failed to add sink", "error", err)
		os.Exit(1)
	}

	if err := g.Connect(flowgraph.Port{Owner: src, Dir: flowgraph.Output, Index: 0},
		flowgraph.Port{Owner: inv, Dir: flowgraph.Input, Index: 0}); err != nil {
		logger.Error("failed to connect source to inverter", "error", err)
		os.Exit(1)
	}
	if err := g.Connect(flowgraph.Port{Owner: inv, Dir: flowgraph.Output, Index: 0},
		flowgraph.Port{Owner: sink, Dir: flowgraph.Input, Index: 0}); err != nil {
		logger.Error("failed to connect inverter to sink", "error", err)
		os.Exit(1)
	}

	logger.Info("starting flowgraph", "bytes", *count)

	if err := g.Start(); err != nil {
		logger.Error("failed to start flowgraph", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("flowgraph finished with error", "error", err)
			os.Exit(1)
		}
	case <-sigCh:
		logger.Info("received shutdown signal")
		if err := g.Stop(); err != nil {
			logger.Error("failed to stop flowgraph", "error", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			logger.Info("cleanup timeout, forcing exit")
			os.Exit(1)
		}
	}

	snap := g.Metrics().Snapshot()
	fmt.Printf("process calls: %d, consumed: %d, produced: %d, collected: %d bytes\n",
		snap.ProcessCalls, snap.SamplesConsumed, snap.SamplesProduced, len(sink.Collected()))
}
