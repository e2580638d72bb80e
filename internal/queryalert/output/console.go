package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// DefaultConsolePrefix starts every console alert line.
const DefaultConsolePrefix = "[ALERT]"

// previewLen is the number of SQL characters shown in the summary line.
const previewLen = 50

// ConsoleSink prints a human-readable summary of each alert.
//
//	[ALERT] [HIGH] SELECT * FROM users WHERE id=1 OR 1=1 - 2 finding(s)
//	  - sql_injection: SQL injection pattern detected: tautology OR 1=1
//	  - data_exfiltration: Data exfiltration pattern detected: SELECT * from sensitive table
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

// NewConsoleSink writes to w (stdout when nil). An empty prefix falls back
// to DefaultConsolePrefix.
func NewConsoleSink(w io.Writer, prefix string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if prefix == "" {
		prefix = DefaultConsolePrefix
	}
	return &ConsoleSink{w: w, prefix: prefix}
}

func (c *ConsoleSink) Name() string { return "console" }

func (c *ConsoleSink) Send(_ context.Context, alert domain.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "%s [%s] %s - %d finding(s)\n",
		c.prefix, alert.Severity(), preview(alert.Query.SQL), len(alert.Findings)); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	for _, f := range alert.Findings {
		if _, err := fmt.Fprintf(c.w, "  - %s: %s\n", f.Analyzer, f.Message); err != nil {
			return fmt.Errorf("write finding: %w", err)
		}
	}
	return nil
}

// preview cuts sql to previewLen characters, not bytes, so multi-byte
// text is never split.
func preview(sql string) string {
	runes := []rune(sql)
	if len(runes) <= previewLen {
		return sql
	}
	return string(runes[:previewLen]) + "..."
}
