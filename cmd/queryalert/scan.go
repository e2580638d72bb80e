package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/input"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
)

var (
	scanFlagInput  string
	scanFlagFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Analyze every audit entry in a postgres log file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if scanFlagInput != "" {
			cfg.Input.FilePath = scanFlagInput
		}
		if scanFlagFormat != "" {
			cfg.Input.Format = scanFlagFormat
		}

		p, err := parsers.NewFactory().NewParser(cfg.Input.Format)
		if err != nil {
			return fmt.Errorf("create parser: %w", err)
		}

		var src *input.LogFileSource
		if cfg.Input.FilePath == "" || cfg.Input.FilePath == "-" {
			src = input.NewLogReader(cmd.InOrStdin(), p)
		} else {
			if src, err = input.OpenLogFile(cfg.Input.FilePath, p); err != nil {
				return err
			}
		}
		defer src.Close()

		ctx, stop := commandContext()
		defer stop()
		serveMetrics(ctx, cfg.Metrics.Addr)

		_, err = runOnce(ctx, cfg, src)
		lines, parsed, skipped := src.Stats()
		logger.L().Infow("scan complete", "input", cfg.Input.FilePath, "lines", lines, "parsed", parsed, "skipped", skipped)
		return err
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanFlagInput, "input", "", "log file to scan (default input.file_path, - for stdin)")
	scanCmd.Flags().StringVar(&scanFlagFormat, "format", "", "log format: text|json (default input.format)")
}
