// Package pipeline turns a query stream into an alert stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/analyzers"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/input"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/metrics"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/output"
)

// progressEvery controls how often a progress line is logged.
const progressEvery = 1000

// Summary describes one Run.
type Summary struct {
	Queries            int            `json:"queries"`
	Alerts             int            `json:"alerts"`
	FindingsByAnalyzer map[string]int `json:"findings_by_analyzer"`
	Duration           time.Duration  `json:"duration"`
}

// Pipeline pulls queries from a source, analyzes each one and hands every
// alert to the sinks in registration order. Processing is strictly
// sequential: alerts leave in source order.
type Pipeline struct {
	source   input.Source
	registry *analyzers.Registry
	sinks    []output.Sink
}

func New(source input.Source, registry *analyzers.Registry, sinks ...output.Sink) *Pipeline {
	copied := make([]output.Sink, len(sinks))
	copy(copied, sinks)
	return &Pipeline{source: source, registry: registry, sinks: copied}
}

// Run drains the source. It stops at io.EOF, at the first source or
// analyzer error, at the first sink error (wrapped with the sink name) or
// when ctx is done. The summary reflects the work done before stopping.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	log := logger.L()
	start := time.Now()
	sum := Summary{FindingsByAnalyzer: make(map[string]int)}
	defer func() {
		sum.Duration = time.Since(start)
		metrics.PipelineRunDuration.Observe(sum.Duration.Seconds())
	}()

	log.Infow("pipeline start", "analyzers", len(p.registry.Analyzers()), "sinks", len(p.sinks))
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		q, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read query: %w", err)
		}
		sum.Queries++
		metrics.QueriesProcessed.Inc()
		if sum.Queries%progressEvery == 0 {
			log.Infow("pipeline progress", "queries", sum.Queries, "alerts", sum.Alerts)
		}

		findings, err := p.registry.AnalyzeAll(ctx, q)
		if err != nil {
			return sum, err
		}
		if len(findings) == 0 {
			continue
		}

		alert := domain.NewAlert(q, findings)
		sum.Alerts++
		for _, f := range findings {
			sum.FindingsByAnalyzer[f.Analyzer]++
		}
		metrics.RecordAlert(alert)
		log.Infow("alert raised",
			"alert_id", alert.ID,
			"severity", alert.Severity().String(),
			"analyzers", alert.Analyzers())

		if err := p.dispatch(ctx, alert); err != nil {
			return sum, err
		}
	}

	log.Infow("pipeline done",
		"queries", sum.Queries,
		"alerts", sum.Alerts,
		"duration", time.Since(start))
	return sum, nil
}

func (p *Pipeline) dispatch(ctx context.Context, alert domain.Alert) error {
	for _, s := range p.sinks {
		began := time.Now()
		err := s.Send(ctx, alert)
		metrics.RecordSinkSend(s.Name(), time.Since(began), err)
		if err != nil {
			logger.L().Errorw("sink failed", "sink", s.Name(), "alert_id", alert.ID, "err", err.Error())
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
	}
	return nil
}
