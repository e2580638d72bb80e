package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/input"
)

var (
	analyzeFlagUser   string
	analyzeFlagSource string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [SQL ...]",
	Short: "Analyze SQL statements given as arguments or one per stdin line",
	RunE: func(cmd *cobra.Command, args []string) error {
		statements := args
		if len(statements) == 0 {
			var err error
			if statements, err = readLines(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if len(statements) == 0 {
			return fmt.Errorf("no SQL statements given")
		}

		queries := make([]domain.Query, 0, len(statements))
		for _, s := range statements {
			q := domain.NewQuery(s)
			if analyzeFlagUser != "" || analyzeFlagSource != "" {
				md := &domain.QueryMetadata{}
				if analyzeFlagUser != "" {
					md.UserID = &analyzeFlagUser
				}
				if analyzeFlagSource != "" {
					md.Source = &analyzeFlagSource
				}
				q.Metadata = md
			}
			queries = append(queries, q)
		}

		ctx, stop := commandContext()
		defer stop()
		cfg := config.Get()
		serveMetrics(ctx, cfg.Metrics.Addr)
		_, err := runOnce(ctx, cfg, input.NewManualSource(queries...))
		return err
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlagUser, "user", "", "user id to attach to every statement")
	analyzeCmd.Flags().StringVar(&analyzeFlagSource, "source", "", "source tag to attach to every statement")
}

// readLines returns the non-blank lines of r unchanged.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}
