package report

import (
	"fmt"
	"io"
	"os"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// Run streams the input through the filters built from opts, writing
// matching records to the output and, when requested, a summary to
// summaryW. With Summary set and no output file, records are not written.
func Run(opts Options, stdin io.Reader, stdout, summaryW io.Writer) (*Stats, error) {
	filters, err := BuildFilters(opts)
	if err != nil {
		return nil, err
	}

	out := stdout
	if opts.OutputFile != "" {
		f, err := os.Create(opts.OutputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", opts.OutputFile, err)
		}
		defer f.Close()
		out = f
	}
	writeRecords := !opts.Summary || opts.OutputFile != ""

	stats := NewStats()
	results := ReadRecords(opts.InputFiles, stdin)
	for res := range results {
		if res.Err != nil {
			stats.IncrementError()
			continue
		}
		stats.IncrementInput()
		if !matchAll(res.Record, filters) {
			continue
		}
		stats.IncrementMatched(res.Record)
		if writeRecords {
			if err := WriteRecordNDJSON(out, res.Record); err != nil {
				drain(results)
				return stats, err
			}
		}
		if opts.Limit > 0 && stats.MatchedRecords >= opts.Limit {
			drain(results)
			break
		}
	}

	if opts.Summary && summaryW != nil {
		stats.PrintSummary(summaryW)
	}
	return stats, nil
}

// BuildFilters turns options into filters. Only set options add filters.
func BuildFilters(opts Options) ([]RecordFilter, error) {
	var filters []RecordFilter
	if opts.MinSeverity != "" {
		min, err := domain.ParseSeverity(opts.MinSeverity)
		if err != nil {
			return nil, err
		}
		filters = append(filters, FilterByMinSeverity(min))
	}
	if len(opts.Analyzers) > 0 {
		filters = append(filters, FilterByAnalyzer(opts.Analyzers))
	}
	if opts.User != "" {
		filters = append(filters, FilterByUser(opts.User))
	}
	if opts.Source != "" {
		filters = append(filters, FilterBySource(opts.Source))
	}
	if opts.SQLContains != "" {
		filters = append(filters, FilterBySQL(opts.SQLContains))
	}
	if !opts.Since.IsZero() || opts.LastDuration > 0 {
		filters = append(filters, FilterByTime(opts.Since, opts.LastDuration, opts.Now))
	}
	return filters, nil
}

// drain lets the reader goroutine finish after an early exit.
func drain(ch <-chan RecordResult) {
	for range ch {
	}
}
