package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/report"
)

var (
	reportFlagInputs      []string
	reportFlagOutput      string
	reportFlagMinSeverity string
	reportFlagAnalyzers   []string
	reportFlagUser        string
	reportFlagSource      string
	reportFlagSQL         string
	reportFlagSince       string
	reportFlagLast        string
	reportFlagSummary     bool
	reportFlagLimit       int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Filter and summarise alert NDJSON files",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := report.Options{
			InputFiles:  append(reportFlagInputs, args...),
			OutputFile:  reportFlagOutput,
			MinSeverity: reportFlagMinSeverity,
			Analyzers:   reportFlagAnalyzers,
			User:        reportFlagUser,
			Source:      reportFlagSource,
			SQLContains: reportFlagSQL,
			Summary:     reportFlagSummary,
			Limit:       reportFlagLimit,
		}
		if reportFlagSince != "" {
			since, err := report.ParseTimestamp(reportFlagSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			opts.Since = since
		}
		if reportFlagLast != "" {
			d, err := report.ParseDuration(reportFlagLast)
			if err != nil {
				return fmt.Errorf("invalid --last: %w", err)
			}
			opts.LastDuration = d
		}

		stats, err := report.Run(opts, cmd.InOrStdin(), cmd.OutOrStdout(), os.Stderr)
		if err != nil {
			return err
		}
		if stats.ErrorRecords > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %d lines could not be decoded\n", stats.ErrorRecords)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportFlagInputs, "input", nil, "alert NDJSON files (default stdin)")
	reportCmd.Flags().StringVar(&reportFlagOutput, "output", "", "write matching alerts here (default stdout)")
	reportCmd.Flags().StringVar(&reportFlagMinSeverity, "min-severity", "", "keep alerts at or above LOW|MEDIUM|HIGH")
	reportCmd.Flags().StringSliceVar(&reportFlagAnalyzers, "analyzer", nil, "keep alerts with a finding from these analyzers")
	reportCmd.Flags().StringVar(&reportFlagUser, "user", "", "keep alerts for this user id")
	reportCmd.Flags().StringVar(&reportFlagSource, "source", "", "keep alerts whose source contains this text")
	reportCmd.Flags().StringVar(&reportFlagSQL, "sql", "", "keep alerts whose SQL contains this text (case-insensitive)")
	reportCmd.Flags().StringVar(&reportFlagSince, "since", "", "keep alerts created at or after this time")
	reportCmd.Flags().StringVar(&reportFlagLast, "last", "", "keep alerts created within this duration (e.g. 30m, 2d)")
	reportCmd.Flags().BoolVar(&reportFlagSummary, "summary", false, "print a summary to stderr instead of records")
	reportCmd.Flags().IntVar(&reportFlagLimit, "limit", 0, "stop after this many matching alerts")
}
