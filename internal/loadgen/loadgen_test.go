package loadgen

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
)

func TestGenerate_TextIsParseable(t *testing.T) {
	w := Workload{Format: FormatText, Seed: 42, Events: 200}
	var out bytes.Buffer
	stats, err := Generate(w, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, stats.Records, len(lines))

	p := parsers.NewLineParser()
	parsed := 0
	for _, line := range lines {
		entry, err := p.ParseLine(context.Background(), line)
		if errors.Is(err, parsers.ErrSkipLine) {
			continue
		}
		require.NoError(t, err, line)
		require.NotNil(t, entry.UserName)
		parsed++
	}
	assert.Equal(t, stats.Audit, parsed)
	assert.Equal(t, stats.Records-stats.ByKind[KindNoise], stats.Audit)
}

func TestGenerate_JSONIsParseable(t *testing.T) {
	w := Workload{Format: FormatJSON, Seed: 7, Events: 100}
	var out bytes.Buffer
	stats, err := Generate(w, &out)
	require.NoError(t, err)

	p := parsers.NewRowParser()
	parsed := 0
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		entry, err := p.ParseLine(context.Background(), line)
		if errors.Is(err, parsers.ErrSkipLine) {
			continue
		}
		require.NoError(t, err)
		require.NotNil(t, entry.Timestamp)
		parsed++
	}
	assert.Equal(t, stats.Audit, parsed)
}

func TestGenerate_Deterministic(t *testing.T) {
	w := Workload{Seed: 99, Events: 50}
	var a, b bytes.Buffer
	_, err := Generate(w, &a)
	require.NoError(t, err)
	_, err = Generate(w, &b)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestGenerate_BurstOnly(t *testing.T) {
	w := Workload{Seed: 1, Events: 2, BurstSize: 30, Users: []string{"batch"}}
	w.Mix.Burst = 1
	var out bytes.Buffer
	stats, err := Generate(w, &out)
	require.NoError(t, err)
	assert.Equal(t, 60, stats.ByKind[KindBurst])
	assert.Equal(t, 60, strings.Count(out.String(), "batch@postgres"))
}

func TestReadWorkload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
format: json
events: 10
interval: 2s
users: [alice, bob]
mix:
  benign: 3
  injection: 1
`), 0o644))

	w, err := ReadWorkload(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, w.Format)
	assert.Equal(t, 10, w.Events)
	assert.Equal(t, []string{"alice", "bob"}, w.Users)
	assert.InDelta(t, 0.75, w.Mix.Benign, 1e-9)
	assert.InDelta(t, 0.25, w.Mix.Injection, 1e-9)
	assert.Equal(t, 2_000_000_000, int(w.Interval))

	require.NoError(t, os.WriteFile(path, []byte("format: csv\n"), 0o644))
	_, err = ReadWorkload(path)
	assert.Error(t, err)
}

type recordingDB struct {
	mu    sync.Mutex
	stmts []string
}

func (r *recordingDB) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, query)
	if strings.Contains(query, "DROP") {
		return nil, errors.New("permission denied")
	}
	return nil, nil
}

func TestReplay(t *testing.T) {
	cfg := ReplayConfig{Concurrency: 3, TotalOps: 40, Seed: 5}
	cfg.Workload.Mix.Injection = 1
	db := &recordingDB{}

	stats, err := Replay(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.Equal(t, 40, stats.Executed)
	assert.Equal(t, 40, stats.ByKind[KindInjection])
	assert.Len(t, db.stmts, 40)

	drops := 0
	for _, s := range db.stmts {
		if strings.Contains(s, "DROP") {
			drops++
		}
	}
	assert.Equal(t, drops, stats.Errors)
}

func TestReadSampleConfigs(t *testing.T) {
	w, err := ReadWorkload(filepath.Join("testdata", "workload.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2000, w.Events)
	assert.Equal(t, 30, w.BurstSize)
	assert.InDelta(t, 1.0, w.Mix.Benign+w.Mix.Injection+w.Mix.Exfiltration+w.Mix.Burst+w.Mix.Noise, 1e-9)

	cfg, err := ReadReplayConfig(filepath.Join("testdata", "replay.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 500, cfg.TotalOps)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}
