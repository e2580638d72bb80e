package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	logsEndpoint = "/v1/projects/%s/analytics/endpoints/logs.all"

	// MaxLogRows is the most rows the endpoint returns for one query.
	MaxLogRows = 1000
	// MaxLogRange is the widest time range the endpoint accepts.
	MaxLogRange = 24 * time.Hour
	// DefaultLogRange is used when no start time is given.
	DefaultLogRange = time.Minute
	// MaxRecentMinutes caps QueryRecentAuditLogs lookbacks.
	MaxRecentMinutes = 60
)

const defaultAuditSQL = `SELECT timestamp, event_message, metadata
FROM postgres_logs
WHERE event_message LIKE 'AUDIT%%'
ORDER BY timestamp DESC
LIMIT %d`

// LogQueryParams selects a slice of postgres_logs.
type LogQueryParams struct {
	Start time.Time
	End   time.Time
	// SQL overrides the default AUDIT row selection.
	SQL string
	// Limit is clamped to MaxLogRows; zero means MaxLogRows.
	Limit int
}

// Validate checks the time range: start strictly before end, at most 24h apart.
func (p LogQueryParams) Validate() error {
	if !p.End.After(p.Start) {
		return invalidParams("end_time must be after start_time")
	}
	if p.End.Sub(p.Start) > MaxLogRange {
		return invalidParams("time range cannot exceed 24 hours")
	}
	return nil
}

func (p LogQueryParams) normalized(now time.Time) LogQueryParams {
	if p.End.IsZero() {
		p.End = now
	}
	if p.Start.IsZero() {
		p.Start = p.End.Add(-DefaultLogRange)
	}
	if p.Limit <= 0 || p.Limit > MaxLogRows {
		p.Limit = MaxLogRows
	}
	return p
}

// LogClient queries the log analytics endpoint of one project.
type LogClient struct {
	*client
	projectRef string
	now        func() time.Time
}

// NewLogClient builds a client for the given project.
func NewLogClient(projectRef string, opts Options) *LogClient {
	return &LogClient{
		client:     newClient(opts),
		projectRef: projectRef,
		now:        time.Now,
	}
}

// ProjectRef returns the configured project.
func (c *LogClient) ProjectRef() string { return c.projectRef }

// QueryLogs fetches rows for the given range. Zero End means now; zero
// Start means one minute before End. Validation errors wrap ErrInvalidParams.
func (c *LogClient) QueryLogs(ctx context.Context, params LogQueryParams) ([]map[string]any, error) {
	p := params.normalized(c.now().UTC())
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sql := p.SQL
	if strings.TrimSpace(sql) == "" {
		sql = fmt.Sprintf(defaultAuditSQL, p.Limit)
	}

	q := url.Values{}
	q.Set("iso_timestamp_start", p.Start.UTC().Format(time.RFC3339Nano))
	q.Set("iso_timestamp_end", p.End.UTC().Format(time.RFC3339Nano))
	q.Set("sql", sql)

	var body any
	path := fmt.Sprintf(logsEndpoint, url.PathEscape(c.projectRef))
	if err := c.getJSON(ctx, path, q, &body); err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return extractRows(body), nil
}

// QueryRecentAuditLogs fetches AUDIT rows from the last minutes (at most 60).
func (c *LogClient) QueryRecentAuditLogs(ctx context.Context, minutes, limit int) ([]map[string]any, error) {
	if minutes > MaxRecentMinutes {
		minutes = MaxRecentMinutes
	}
	if minutes <= 0 {
		minutes = 1
	}
	end := c.now().UTC()
	return c.QueryLogs(ctx, LogQueryParams{
		Start: end.Add(-time.Duration(minutes) * time.Minute),
		End:   end,
		Limit: limit,
	})
}

// extractRows accepts a bare array or an object nesting it under
// result, data or rows. Non-object elements are dropped.
func extractRows(body any) []map[string]any {
	switch t := body.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		return rows
	case map[string]any:
		for _, key := range []string{"result", "data", "rows"} {
			if v, ok := t[key]; ok {
				return extractRows(v)
			}
		}
	}
	return []map[string]any{}
}
