package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/metrics"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/supabase"
)

// DefaultLookback is how far back a fetch reaches when none is configured.
const DefaultLookback = 5 * time.Minute

// LogQuerier fetches raw log rows. *supabase.LogClient implements it.
type LogQuerier interface {
	QueryLogs(ctx context.Context, params supabase.LogQueryParams) ([]map[string]any, error)
}

// SupabaseSource fetches pgaudit rows once, lazily on the first Next, and
// then iterates over the cached queries. The first fetch covers the last
// lookback; Refresh fetches only what was logged since the previous
// successful fetch, so no entry is analyzed twice.
type SupabaseSource struct {
	client   LogQuerier
	lookback time.Duration
	now      func() time.Time
	lastEnd  time.Time

	queries []domain.Query
	index   int
	fetched bool
	skipped int
}

// NewSupabaseSource builds a source whose first fetch reads the last
// lookback of logs.
func NewSupabaseSource(client LogQuerier, lookback time.Duration) *SupabaseSource {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &SupabaseSource{client: client, lookback: lookback, now: time.Now}
}

// WithClock replaces the clock that bounds fetch windows.
func (s *SupabaseSource) WithClock(now func() time.Time) *SupabaseSource {
	s.now = now
	return s
}

// FromRows builds a source over pre-fetched rows; it never calls the API.
func FromRows(rows []map[string]any) *SupabaseSource {
	s := &SupabaseSource{now: time.Now, fetched: true}
	s.queries = s.parseRows(rows)
	return s
}

func (s *SupabaseSource) Next(ctx context.Context) (domain.Query, error) {
	if err := ctx.Err(); err != nil {
		return domain.Query{}, err
	}
	if !s.fetched {
		if err := s.fetch(ctx); err != nil {
			return domain.Query{}, err
		}
	}
	if s.index >= len(s.queries) {
		return domain.Query{}, io.EOF
	}
	q := s.queries[s.index]
	s.index++
	return q, nil
}

// Reset rewinds to the first cached query without fetching.
func (s *SupabaseSource) Reset() {
	s.index = 0
}

// Refresh discards the cache and fetches entries logged since the
// previous successful fetch.
func (s *SupabaseSource) Refresh(ctx context.Context) error {
	s.fetched = false
	s.index = 0
	s.queries = nil
	return s.fetch(ctx)
}

// QueryCount is the number of queries in the current cache.
func (s *SupabaseSource) QueryCount() int {
	return len(s.queries)
}

// Skipped is the number of rows in the current cache that were not audit entries.
func (s *SupabaseSource) Skipped() int {
	return s.skipped
}

func (s *SupabaseSource) fetch(ctx context.Context) error {
	if s.client == nil {
		return errors.New("supabase source has no client")
	}
	end := s.now().UTC()
	start := end.Add(-s.lookback)
	if !s.lastEnd.IsZero() {
		start = s.lastEnd
		if end.Sub(start) > supabase.MaxLogRange {
			logger.L().Warnw("gap since last fetch exceeds the log API range; older entries are skipped",
				"last_end", s.lastEnd, "end", end)
			start = end.Add(-supabase.MaxLogRange)
		}
	}
	if !end.After(start) {
		s.queries = nil
		s.skipped = 0
		s.fetched = true
		return nil
	}

	rows, err := s.client.QueryLogs(ctx, supabase.LogQueryParams{Start: start, End: end})
	metrics.RecordFetch(err)
	if err != nil {
		return fmt.Errorf("fetch audit logs: %w", err)
	}

	s.queries = s.parseRows(rows)
	s.fetched = true
	s.lastEnd = end
	logger.L().Infow("fetched audit logs",
		"rows", len(rows),
		"queries", len(s.queries),
		"skipped", s.skipped,
		"start", start,
		"end", end,
	)
	return nil
}

func (s *SupabaseSource) parseRows(rows []map[string]any) []domain.Query {
	s.skipped = 0
	queries := make([]domain.Query, 0, len(rows))
	for _, row := range rows {
		entry, err := parsers.ParseLogRow(row)
		if err != nil {
			s.skipped++
			metrics.ParseSkips.WithLabelValues("pgaudit").Inc()
			continue
		}
		queries = append(queries, entryToQuery("pgaudit", entry))
	}
	return queries
}
