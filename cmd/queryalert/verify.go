package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/chain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
)

var (
	verifyFlagInput     string
	verifyFlagOutput    string
	verifyFlagState     string
	verifyFlagStartHash string
	verifyFlagSeal      bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check, or seal, the hash chain of an alert NDJSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		runArgs := chain.RunArgs{
			Mode:      chain.ModeCheck,
			InputFile: verifyFlagInput,
			StartHash: verifyFlagStartHash,
			RunLog:    cfg.Logging.RunLog,
		}
		if verifyFlagSeal {
			runArgs.Mode = chain.ModeSeal
			runArgs.OutputFile = verifyFlagOutput
			runArgs.StateFile = verifyFlagState
		}

		summary, err := chain.RunFile(runArgs, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		// seal writes records to stdout; keep the summary off it
		enc := json.NewEncoder(os.Stderr)
		if runArgs.Mode == chain.ModeCheck {
			enc = json.NewEncoder(cmd.OutOrStdout())
		}
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
		if summary.Status == "fail" {
			return fmt.Errorf("hash chain broken at %d record(s)", len(summary.Tampered))
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlagInput, "input", "", "input NDJSON file (default stdin)")
	verifyCmd.Flags().BoolVar(&verifyFlagSeal, "seal", false, "compute the chain instead of checking it")
	verifyCmd.Flags().StringVar(&verifyFlagOutput, "output", "", "sealed NDJSON output (default stdout; --seal only)")
	verifyCmd.Flags().StringVar(&verifyFlagState, "state-file", "", "chain state to resume and persist (--seal only)")
	verifyCmd.Flags().StringVar(&verifyFlagStartHash, "start-hash", "", "expected hash_prev of the first record (default all zeros)")
}
