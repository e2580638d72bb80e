package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)

func newTestLogClient(srv *httptest.Server) *LogClient {
	c := NewLogClient("proj-ref", testOptions(srv, &sleepRecorder{}))
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestLogQueryParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr string
	}{
		{"valid hour", fixedNow.Add(-time.Hour), fixedNow, ""},
		{"exactly 24h", fixedNow.Add(-24 * time.Hour), fixedNow, ""},
		{"over 24h", fixedNow.Add(-24*time.Hour - time.Second), fixedNow, "cannot exceed 24 hours"},
		{"equal", fixedNow, fixedNow, "end_time must be after start_time"},
		{"reversed", fixedNow, fixedNow.Add(-time.Minute), "end_time must be after start_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LogQueryParams{Start: tt.start, End: tt.end}.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryLogs_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/proj-ref/analytics/endpoints/logs.all", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "2025-01-14T11:59:00Z", q.Get("iso_timestamp_start"))
		assert.Equal(t, "2025-01-14T12:00:00Z", q.Get("iso_timestamp_end"))
		assert.Contains(t, q.Get("sql"), "FROM postgres_logs")
		assert.Contains(t, q.Get("sql"), "LIKE 'AUDIT%'")
		assert.True(t, strings.HasSuffix(q.Get("sql"), "LIMIT 1000"), q.Get("sql"))
		writeJSON(w, map[string]any{"result": []any{
			map[string]any{"event_message": "AUDIT: SESSION,1,1,READ,SELECT,,,SELECT 1", "timestamp": 1736856000000000},
			"not-a-row",
		}})
	}))
	defer srv.Close()

	rows, err := newTestLogClient(srv).QueryLogs(context.Background(), LogQueryParams{Limit: 5000})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AUDIT: SESSION,1,1,READ,SELECT,,,SELECT 1", rows[0]["event_message"])
}

func TestQueryLogs_CustomSQLAndLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SELECT 1", r.URL.Query().Get("sql"))
		writeJSON(w, []any{})
	}))
	defer srv.Close()

	rows, err := newTestLogClient(srv).QueryLogs(context.Background(), LogQueryParams{SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryLogs_InvalidRangeSendsNothing(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := newTestLogClient(srv).QueryLogs(context.Background(), LogQueryParams{
		Start: fixedNow.Add(-48 * time.Hour),
		End:   fixedNow,
	})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.False(t, called)
}

func TestQueryRecentAuditLogs_CapsMinutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01-14T11:00:00Z", r.URL.Query().Get("iso_timestamp_start"))
		assert.True(t, strings.HasSuffix(r.URL.Query().Get("sql"), "LIMIT 10"))
		writeJSON(w, map[string]any{"data": map[string]any{"rows": []any{}}})
	}))
	defer srv.Close()

	_, err := newTestLogClient(srv).QueryRecentAuditLogs(context.Background(), 600, 10)
	require.NoError(t, err)
}

func TestQueryLogs_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestLogClient(srv).QueryLogs(context.Background(), LogQueryParams{})
	assert.True(t, errors.Is(err, ErrAuthentication))
}

func TestExtractRows(t *testing.T) {
	row := map[string]any{"event_message": "x"}
	tests := []struct {
		name string
		body any
		want int
	}{
		{"list", []any{row, row}, 2},
		{"result", map[string]any{"result": []any{row}}, 1},
		{"data", map[string]any{"data": []any{row}}, 1},
		{"rows", map[string]any{"rows": []any{row}}, 1},
		{"nested", map[string]any{"result": map[string]any{"rows": []any{row}}}, 1},
		{"unknown object", map[string]any{"error": "x"}, 0},
		{"scalar", "nope", 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractRows(tt.body)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}
