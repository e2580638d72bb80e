package main

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/analyzers"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/input"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/output"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/pipeline"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/supabase"
)

// logStore serves rows whose timestamp falls in the requested range, the
// way the log API does. errs are returned on the matching call number.
type logStore struct {
	mu     sync.Mutex
	rows   []map[string]any
	errs   map[int]error
	calls  int
	params []supabase.LogQueryParams
}

func (s *logStore) QueryLogs(_ context.Context, p supabase.LogQueryParams) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.params = append(s.params, p)
	if err := s.errs[s.calls]; err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, row := range s.rows {
		ts := time.UnixMicro(row["timestamp"].(int64))
		if !ts.Before(p.Start) && ts.Before(p.End) {
			out = append(out, row)
		}
	}
	return out, nil
}

func logRow(user string, ts time.Time) map[string]any {
	return map[string]any{
		"event_message": "AUDIT: SESSION,1,1,READ,SELECT,TABLE,public.orders,SELECT id FROM orders WHERE id = 1",
		"timestamp":     ts.UnixMicro(),
		"parsed":        map[string]any{"user_name": user},
	}
}

type recordingSink struct {
	alerts []domain.Alert
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Send(_ context.Context, a domain.Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

func newTestWiring(t *testing.T, src input.Source) (*wiring, *recordingSink) {
	t.Helper()
	registry, err := analyzers.NewRegistryFromNames(
		[]string{analyzers.NameSQLInjection, analyzers.NameVolumeAnomaly},
		analyzers.Options{VolumeWindow: time.Hour})
	require.NoError(t, err)
	sink := &recordingSink{}
	return &wiring{
		pipeline: pipeline.New(src, registry, sink),
		registry: registry,
		outputs:  &output.Set{},
	}, sink
}

func TestWatchWindow_RefreshErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
		is      error
	}{
		{name: "unauthorized", err: &supabase.APIError{StatusCode: 401, Method: "GET", Path: "/v1/projects/ref/analytics/endpoints/logs.all"}, wantErr: true, is: supabase.ErrAuthentication},
		{name: "forbidden", err: &supabase.APIError{StatusCode: 403}, wantErr: true, is: supabase.ErrAuthentication},
		{name: "not found", err: &supabase.APIError{StatusCode: 404}, wantErr: true, is: supabase.ErrNotFound},
		{name: "server error", err: &supabase.APIError{StatusCode: 500}, wantErr: true},
		{name: "rate limit exhausted", err: &supabase.RateLimitError{RetryAfter: 30 * time.Second, Attempts: 4}, wantErr: true},
		{name: "network", err: &url.Error{Op: "Get", URL: "https://api.supabase.com", Err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &logStore{errs: map[int]error{2: tt.err}}
			now := time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)
			src := input.NewSupabaseSource(store, 5*time.Minute).WithClock(func() time.Time { return now })
			w, _ := newTestWiring(t, src)
			ctx := context.Background()

			require.NoError(t, watchWindow(ctx, w, src, false))
			now = now.Add(time.Minute)
			err := watchWindow(ctx, w, src, true)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			var rl *supabase.RateLimitError
			if errors.As(tt.err, &rl) {
				assert.ErrorAs(t, err, &rl)
				assert.Equal(t, 30*time.Second, rl.RetryAfter)
			}
		})
	}
}

func TestWatchWindow_NetworkErrorCatchesUp(t *testing.T) {
	base := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	store := &logStore{errs: map[int]error{
		2: &url.Error{Op: "Get", URL: "https://api.supabase.com", Err: errors.New("connection reset")},
	}}
	now := base
	src := input.NewSupabaseSource(store, 5*time.Minute).WithClock(func() time.Time { return now })
	w, _ := newTestWiring(t, src)
	ctx := context.Background()

	require.NoError(t, watchWindow(ctx, w, src, false))

	// entries logged while the API was unreachable
	store.rows = append(store.rows, logRow("bob", base.Add(30*time.Second)), logRow("bob", base.Add(90*time.Second)))
	now = base.Add(time.Minute)
	require.NoError(t, watchWindow(ctx, w, src, true))
	now = base.Add(2 * time.Minute)
	require.NoError(t, watchWindow(ctx, w, src, true))

	assert.Equal(t, base, store.params[2].Start)
	assert.Equal(t, 2, src.QueryCount())
	v := volumeAnalyzer(t, w)
	assert.Equal(t, 2, v.Count("bob"))
}

func TestWatchWindow_PollsDoNotRecount(t *testing.T) {
	base := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	store := &logStore{}
	for i := 0; i < 21; i++ {
		store.rows = append(store.rows, logRow("alice", base.Add(time.Duration(i)*time.Second)))
	}
	now := base.Add(time.Minute)
	src := input.NewSupabaseSource(store, 5*time.Minute).WithClock(func() time.Time { return now })
	w, sink := newTestWiring(t, src)
	ctx := context.Background()

	require.NoError(t, watchWindow(ctx, w, src, false))
	for poll := 0; poll < 4; poll++ {
		now = now.Add(time.Minute)
		require.NoError(t, watchWindow(ctx, w, src, true))
	}

	require.Len(t, sink.alerts, 1)
	f := sink.alerts[0].Findings[0]
	assert.Equal(t, analyzers.NameVolumeAnomaly, f.Analyzer)
	assert.Equal(t, domain.SeverityLow, f.Severity)
	assert.Equal(t, 21, f.Details["query_count"])
	assert.Equal(t, 21, volumeAnalyzer(t, w).Count("alice"))

	for i := 1; i < len(store.params); i++ {
		assert.Equal(t, store.params[i-1].End, store.params[i].Start, "window %d", i)
	}
}

func volumeAnalyzer(t *testing.T, w *wiring) *analyzers.VolumeAnomalyAnalyzer {
	t.Helper()
	for _, a := range w.registry.Analyzers() {
		if v, ok := a.(*analyzers.VolumeAnomalyAnalyzer); ok {
			return v
		}
	}
	t.Fatal("volume analyzer not registered")
	return nil
}

func TestModeCommand(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"logfile", "scan"},
		{"supabase", "watch"},
		{"manual", "analyze"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.want, modeCommand(tt.mode).Name())
		})
	}
}

func TestReadLines_KeepsStatementsVerbatim(t *testing.T) {
	in := "  SELECT 1 OR 1=1  \n\n \t \nSELECT 2;\t\n"
	got, err := readLines(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"  SELECT 1 OR 1=1  ", "SELECT 2;\t"}, got)
}
