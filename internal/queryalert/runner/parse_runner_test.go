package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
)

// fakeParser returns scripted results in order, then skips.
type fakeParser struct {
	results []struct {
		entry *parsers.AuditEntry
		err   error
	}
	i int
}

func (f *fakeParser) ParseLine(ctx context.Context, line string) (*parsers.AuditEntry, error) {
	if f.i >= len(f.results) {
		return nil, parsers.ErrSkipLine
	}
	r := f.results[f.i]
	f.i++
	return r.entry, r.err
}

func script(items ...interface{}) *fakeParser {
	p := &fakeParser{}
	for _, it := range items {
		switch v := it.(type) {
		case *parsers.AuditEntry:
			p.results = append(p.results, struct {
				entry *parsers.AuditEntry
				err   error
			}{entry: v})
		case error:
			p.results = append(p.results, struct {
				entry *parsers.AuditEntry
				err   error
			}{err: v})
		case nil:
			p.results = append(p.results, struct {
				entry *parsers.AuditEntry
				err   error
			}{})
		}
	}
	return p
}

func decodeEntries(t *testing.T, data []byte) []parsers.AuditEntry {
	t.Helper()
	var entries []parsers.AuditEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e parsers.AuditEntry
		require.NoError(t, dec.Decode(&e))
		entries = append(entries, e)
	}
	return entries
}

func decodeRejects(t *testing.T, path string) []Reject {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rejects []Reject
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var r Reject
		require.NoError(t, dec.Decode(&r))
		rejects = append(rejects, r)
	}
	return rejects
}

func TestRunParse_NormalEntry(t *testing.T) {
	var out bytes.Buffer
	entry := &parsers.AuditEntry{AuditType: parsers.AuditSession, Command: "SELECT", Statement: "SELECT 1"}

	sum, err := RunParse(context.Background(), script(entry), strings.NewReader("SOME LINE\n"), &out, "text", &config.Config{})
	require.NoError(t, err)

	entries := decodeEntries(t, out.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT 1", entries[0].Statement)
	assert.Equal(t, 1, sum.ParsedCount)
	assert.Equal(t, 0, sum.RejectedCount)
}

func TestRunParse_SkipLine(t *testing.T) {
	var out bytes.Buffer
	sum, err := RunParse(context.Background(), script(parsers.ErrSkipLine), strings.NewReader("NOISE\n"), &out, "text", &config.Config{})
	require.NoError(t, err)
	assert.Empty(t, decodeEntries(t, out.Bytes()))
	assert.Equal(t, 1, sum.RejectedCount)

	rejectPath := filepath.Join(t.TempDir(), "reject.ndjson")
	cfg := &config.Config{Output: config.OutputCfg{RejectFile: rejectPath}}
	out.Reset()
	_, err = RunParse(context.Background(), script(parsers.ErrSkipLine), strings.NewReader("NOISE\n"), &out, "text", cfg)
	require.NoError(t, err)
	assert.Empty(t, out.Bytes())

	rejects := decodeRejects(t, rejectPath)
	require.Len(t, rejects, 1)
	assert.Equal(t, KindSkip, rejects[0].Kind)
	assert.Equal(t, "NOISE", rejects[0].Line)
	assert.NotEmpty(t, rejects[0].RejectedAt)
	assert.NotEmpty(t, rejects[0].ID)
}

func TestRunParse_ParseErrorIsFatal(t *testing.T) {
	rejectPath := filepath.Join(t.TempDir(), "reject.ndjson")
	cfg := &config.Config{Output: config.OutputCfg{RejectFile: rejectPath}}
	var out bytes.Buffer

	_, err := RunParse(context.Background(), script(errors.New("boom")), strings.NewReader("BAD\n"), &out, "json", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	rejects := decodeRejects(t, rejectPath)
	require.Len(t, rejects, 1)
	assert.Equal(t, KindParseError, rejects[0].Kind)
	assert.Equal(t, "boom", rejects[0].Error)
}

func TestRunParse_NilEntry(t *testing.T) {
	rejectPath := filepath.Join(t.TempDir(), "reject.ndjson")
	cfg := &config.Config{Output: config.OutputCfg{RejectFile: rejectPath}}
	var out bytes.Buffer

	sum, err := RunParse(context.Background(), script(nil), strings.NewReader("LINE\n"), &out, "text", cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RejectedCount)
	rejects := decodeRejects(t, rejectPath)
	require.Len(t, rejects, 1)
	assert.Equal(t, KindParseError, rejects[0].Kind)
}

func TestRunParse_RealParserAndRunLog(t *testing.T) {
	dir := t.TempDir()
	runLog := filepath.Join(dir, "run.log")
	cfg := &config.Config{
		Input:   config.InputCfg{FilePath: "postgres.log"},
		Logging: config.LoggingCfg{RunLog: runLog},
	}
	input := strings.Join([]string{
		"2025-01-14 12:00:00 UTC::app@db:[10]: LOG: AUDIT: SESSION,1,1,READ,SELECT,TABLE,public.users,SELECT * FROM users;",
		"2025-01-14 12:00:01 UTC::postgres@postgres:[11]: LOG: checkpoint starting: time",
		"2025-01-14 12:00:02 UTC::app@db:[10]: LOG: AUDIT: SESSION,2,1,WRITE,INSERT,,,INSERT INTO t VALUES (1)",
	}, "\n")

	var out bytes.Buffer
	sum, err := RunParse(context.Background(), parsers.NewLineParser(), strings.NewReader(input), &out, "text", cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.RawCount)
	assert.Equal(t, 2, sum.ParsedCount)
	assert.Equal(t, 1, sum.RejectedCount)

	entries := decodeEntries(t, out.Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, "SELECT * FROM users;", entries[0].Statement)
	assert.Equal(t, "INSERT", entries[1].Command)

	data, err := os.ReadFile(runLog)
	require.NoError(t, err)
	var logged RunSummary
	require.NoError(t, json.Unmarshal(data, &logged))
	assert.Equal(t, "postgres.log", logged.Input)
	assert.Equal(t, 2, logged.ParsedCount)
}
