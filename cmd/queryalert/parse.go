package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/runner"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Convert raw pgaudit logs → NDJSON audit entries",
	RunE:  runParse,
}

var (
	flagFormat     string
	flagInput      string
	flagOutput     string
	flagRejectFile string
)

func init() {
	parseCmd.Flags().StringVar(&flagFormat, "format", "", "log format: text|json (default input.format)")
	parseCmd.Flags().StringVar(&flagInput, "input", "", "input file (default stdin)")
	parseCmd.Flags().StringVar(&flagOutput, "output", "", "output file (default stdout)")
	parseCmd.Flags().StringVar(&flagRejectFile, "reject-file", "", "file to store rejected/skipped log entries")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	// Override config with command line flags
	if flagRejectFile != "" {
		cfg.Output.RejectFile = flagRejectFile
	}
	if flagFormat != "" {
		cfg.Input.Format = flagFormat
	}
	cfg.Input.FilePath = flagInput

	// Input reader
	var in io.Reader
	if flagInput == "" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(flagInput)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	// Output writer
	var out io.Writer
	if flagOutput == "" {
		out = cmd.OutOrStdout()
	} else {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	p, err := parsers.NewFactory().NewParser(cfg.Input.Format)
	if err != nil {
		return fmt.Errorf("create parser: %w", err)
	}

	ctx, stop := commandContext()
	defer stop()

	summary, err := runner.RunParse(ctx, p, in, out, cfg.Input.Format, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "parsed %d of %d lines (%d rejected)\n", summary.ParsedCount, summary.RawCount, summary.RejectedCount)
	return nil
}
