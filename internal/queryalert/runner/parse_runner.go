// Package runner holds the parse-only loop behind `queryalert parse`: raw
// log records in, AuditEntry NDJSON out, with skipped records captured in
// an optional reject file.
package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
)

// Reject kinds.
const (
	KindSkip       = "SKIP"
	KindParseError = "PARSE_ERROR"
)

// RunSummary is appended to the run log after each parse run.
type RunSummary struct {
	Timestamp     string `json:"timestamp"`
	Input         string `json:"input"`
	Format        string `json:"format"`
	RejectFile    string `json:"reject_file,omitempty"`
	RawCount      int    `json:"raw_count"`
	ParsedCount   int    `json:"parsed_count"`
	RejectedCount int    `json:"rejected_count"`
}

// Reject is one record the parser did not turn into an AuditEntry.
type Reject struct {
	ID         string `json:"id"`
	RejectedAt string `json:"rejected_at"`
	Kind       string `json:"kind"`
	Line       string `json:"line"`
	Error      string `json:"error,omitempty"`
}

func newReject(kind, line string, err error) *Reject {
	r := &Reject{
		ID:         uuid.NewString(),
		RejectedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Kind:       kind,
		Line:       line,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// entryEncoder writes entries to the main output and rejects to the
// reject file, when one is open.
type entryEncoder struct {
	enc    *json.Encoder
	reject *json.Encoder
	log    *zap.SugaredLogger
}

func newEntryEncoder(out io.Writer, reject io.Writer) *entryEncoder {
	var rejectEnc *json.Encoder
	if reject != nil {
		rejectEnc = json.NewEncoder(reject)
	}
	return &entryEncoder{enc: json.NewEncoder(out), reject: rejectEnc, log: logger.L()}
}

func (e *entryEncoder) encodeEntry(entry *parsers.AuditEntry) error {
	if err := e.enc.Encode(entry); err != nil {
		e.log.Errorw("encode entry", "err", err.Error())
		return fmt.Errorf("encode entry: %w", err)
	}
	return nil
}

func (e *entryEncoder) encodeReject(r *Reject) error {
	if e.reject == nil {
		return nil
	}
	if err := e.reject.Encode(r); err != nil {
		e.log.Errorw("encode reject", "kind", r.Kind, "err", err.Error())
		return fmt.Errorf("encode reject: %w", err)
	}
	return nil
}

func appendRunLog(path string, summary RunSummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(summary)
}

// openRejectFile returns nil when no reject file is configured.
func openRejectFile(cfg *config.Config) (io.WriteCloser, error) {
	if cfg == nil || cfg.Output.RejectFile == "" {
		return nil, nil
	}
	return os.OpenFile(cfg.Output.RejectFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

type parseResult struct {
	rawCount      int
	parsedCount   int
	rejectedCount int
}

// processLine parses and encodes one record. It reports whether an entry
// was written; the error is non-nil only when the run must stop.
func processLine(ctx context.Context, line string, p parsers.Parser, enc *entryEncoder) (bool, error) {
	log := logger.L()

	entry, err := p.ParseLine(ctx, line)
	if err != nil {
		if errors.Is(err, parsers.ErrSkipLine) {
			log.Debugw("skipping line", "length", len(line))
			return false, enc.encodeReject(newReject(KindSkip, line, nil))
		}
		log.Errorw("parse error", "err", err.Error(), "line", line)
		_ = enc.encodeReject(newReject(KindParseError, line, err))
		return false, fmt.Errorf("parse error: %w", err)
	}

	if entry == nil {
		log.Warnw("parser returned nil entry", "line", line)
		return false, enc.encodeReject(newReject(KindParseError, line, errors.New("nil entry")))
	}

	log.Debugw("parsed entry",
		"audit_type", entry.AuditType,
		"command", entry.Command,
		"session", entry.SessionOrUnknown())
	if err := enc.encodeEntry(entry); err != nil {
		return false, err
	}
	return true, nil
}

// RunParse reads raw log records line by line, writes each parsed
// AuditEntry as NDJSON to out and records everything else in the reject
// file. Skipped records are never fatal. A summary is appended to the run
// log when one is configured.
func RunParse(ctx context.Context, p parsers.Parser, in io.Reader, out io.Writer, format string, cfg *config.Config) (RunSummary, error) {
	log := logger.L()
	summary := RunSummary{Format: format}
	if cfg != nil {
		summary.Input = cfg.Input.FilePath
		summary.RejectFile = cfg.Output.RejectFile
	}
	log.Infow("starting parse run", "input", summary.Input, "format", format, "reject_file", summary.RejectFile)

	rejectFile, err := openRejectFile(cfg)
	if err != nil {
		log.Errorw("failed to open reject file", "path", summary.RejectFile, "err", err.Error())
		return summary, fmt.Errorf("open reject file: %w", err)
	}
	if rejectFile != nil {
		defer rejectFile.Close()
	}

	var rejectW io.Writer
	if rejectFile != nil {
		rejectW = rejectFile
	}
	enc := newEntryEncoder(out, rejectW)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	result := parseResult{}
	startTime := time.Now()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result.rawCount++
		if result.rawCount%1000 == 0 {
			log.Infow("processing progress",
				"lines_processed", result.rawCount,
				"parsed_count", result.parsedCount,
				"rejected_count", result.rejectedCount)
		}

		parsed, err := processLine(ctx, scanner.Text(), p, enc)
		if err != nil {
			log.Errorw("failed to process line", "line_number", result.rawCount, "err", err.Error())
			return summary, err
		}
		if parsed {
			result.parsedCount++
		} else {
			result.rejectedCount++
		}
	}
	if err := scanner.Err(); err != nil {
		log.Errorw("scanner error", "err", err.Error())
		return summary, fmt.Errorf("scan input: %w", err)
	}

	summary.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	summary.RawCount = result.rawCount
	summary.ParsedCount = result.parsedCount
	summary.RejectedCount = result.rejectedCount

	if cfg != nil && cfg.Logging.RunLog != "" {
		if err := appendRunLog(cfg.Logging.RunLog, summary); err != nil {
			log.Errorw("failed to write run log", "path", cfg.Logging.RunLog, "err", err.Error())
		} else {
			log.Debugw("wrote run summary", "path", cfg.Logging.RunLog)
		}
	}

	duration := time.Since(startTime)
	log.Infow("completed parse run",
		"duration", duration,
		"lines_processed", result.rawCount,
		"parsed_count", result.parsedCount,
		"rejected_count", result.rejectedCount,
		"lines_per_second", float64(result.rawCount)/duration.Seconds())
	return summary, nil
}
