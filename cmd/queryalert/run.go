package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/analyzers"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/input"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/output"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/pipeline"
)

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// wiring is a pipeline plus the resources that must be closed after it.
type wiring struct {
	pipeline *pipeline.Pipeline
	registry *analyzers.Registry
	outputs  *output.Set
}

func (w *wiring) Close() error {
	return w.outputs.Close()
}

// sweepVolume drops idle users from the volume analyzer, if registered.
func (w *wiring) sweepVolume() {
	for _, a := range w.registry.Analyzers() {
		if v, ok := a.(*analyzers.VolumeAnomalyAnalyzer); ok {
			v.Sweep(time.Now())
		}
	}
}

// wire builds the registry and sinks from config and attaches them to source.
func wire(ctx context.Context, cfg *config.Config, source input.Source) (*wiring, error) {
	registry, err := analyzers.NewRegistryFromNames(cfg.Analyzers.Enabled, analyzers.Options{
		VolumeWindow: cfg.Analyzers.VolumeWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("build analyzers: %w", err)
	}
	outputs, err := output.Build(ctx, cfg.Outputs, os.Stdout)
	if err != nil {
		return nil, err
	}
	if len(outputs.Sinks) == 0 {
		logger.L().Warnw("no sinks configured; alerts will only be counted")
	}
	return &wiring{
		pipeline: pipeline.New(source, registry, outputs.Sinks...),
		registry: registry,
		outputs:  outputs,
	}, nil
}

// runOnce wires source, runs it to the end and logs the summary.
func runOnce(ctx context.Context, cfg *config.Config, source input.Source) (pipeline.Summary, error) {
	w, err := wire(ctx, cfg, source)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.L().Warnw("failed to close sinks", "err", err.Error())
		}
	}()

	summary, err := w.pipeline.Run(ctx)
	printSummary(summary)
	return summary, err
}

func printSummary(s pipeline.Summary) {
	fmt.Fprintf(os.Stderr, "processed %d queries, %d alerts in %s\n", s.Queries, s.Alerts, s.Duration)
	for name, n := range s.FindingsByAnalyzer {
		fmt.Fprintf(os.Stderr, "  %s: %d finding(s)\n", name, n)
	}
}
