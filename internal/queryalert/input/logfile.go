package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/metrics"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
)

// maxLineSize bounds one log line; pgaudit statements can be long.
const maxLineSize = 4 * 1024 * 1024

// LogFileSource reads Postgres log lines and yields one query per audit
// entry. Lines that are not audit records are skipped.
type LogFileSource struct {
	parser  parsers.Parser
	scanner *bufio.Scanner
	closer  io.Closer
	origin  string

	lineNo  int
	parsed  int
	skipped int
	done    bool
}

// OpenLogFile opens path for reading. The file is closed when the source
// is exhausted or Close is called.
func OpenLogFile(path string, parser parsers.Parser) (*LogFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s := NewLogReader(f, parser)
	s.closer = f
	return s, nil
}

// NewLogReader reads lines from r. A nil parser selects the text line parser.
func NewLogReader(r io.Reader, parser parsers.Parser) *LogFileSource {
	if parser == nil {
		parser = parsers.NewLineParser()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	origin := "logfile"
	if _, ok := parser.(*parsers.RowParser); ok {
		// exported API rows keep the tag used for live Supabase rows
		origin = "pgaudit"
	}
	return &LogFileSource{parser: parser, scanner: sc, origin: origin}
}

// FromLines reads pre-split lines.
func FromLines(lines []string, parser parsers.Parser) *LogFileSource {
	return NewLogReader(strings.NewReader(strings.Join(lines, "\n")), parser)
}

func (s *LogFileSource) Next(ctx context.Context) (domain.Query, error) {
	log := logger.L()
	for !s.done {
		if err := ctx.Err(); err != nil {
			return domain.Query{}, err
		}
		if !s.scanner.Scan() {
			s.done = true
			err := s.scanner.Err()
			s.Close()
			if err != nil {
				return domain.Query{}, fmt.Errorf("read log line %d: %w", s.lineNo+1, err)
			}
			break
		}
		s.lineNo++

		entry, err := s.parser.ParseLine(ctx, s.scanner.Text())
		if err != nil {
			if errors.Is(err, parsers.ErrSkipLine) {
				s.skipped++
				metrics.ParseSkips.WithLabelValues(s.origin).Inc()
				log.Debugw("skip line", "line", s.lineNo)
				continue
			}
			return domain.Query{}, fmt.Errorf("parse line %d: %w", s.lineNo, err)
		}
		s.parsed++
		return entryToQuery(s.origin, entry), nil
	}
	return domain.Query{}, io.EOF
}

// Stats reports lines read, entries parsed and lines skipped so far.
func (s *LogFileSource) Stats() (lines, parsed, skipped int) {
	return s.lineNo, s.parsed, s.skipped
}

// Close releases the underlying file, if any.
func (s *LogFileSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
