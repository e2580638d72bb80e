package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/chain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// FileSink appends alerts to an NDJSON file as a hash chain. The chain
// state is saved after every alert so the next run continues the chain.
type FileSink struct {
	mu        sync.Mutex
	f         *os.File
	chain     *chain.Chain
	stateFile string
}

// NewFileSink opens path for appending and resumes the chain recorded in
// stateFile. Without a state file every run starts a new chain.
func NewFileSink(path, stateFile string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink: path is required")
	}
	st, err := chain.LoadState(stateFile)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open alert file: %w", err)
	}
	return &FileSink{f: f, chain: chain.New(st), stateFile: stateFile}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Send(_ context.Context, alert domain.Alert) error {
	raw, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// seal on a copy; the head only moves once the record is on disk
	next := *s.chain
	line, err := next.SealLine(raw)
	if err != nil {
		return err
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	*s.chain = next
	return chain.SaveState(s.stateFile, s.chain.State())
}

// Close flushes the file to disk.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
