package domain

import "time"

// QueryMetadata carries optional context about a captured query.
// Every field is independently optional; nil means unknown.
type QueryMetadata struct {
	Timestamp  *time.Time `json:"timestamp,omitempty"` // event time, not ingestion time
	UserID     *string    `json:"user_id,omitempty"`
	DurationMS *float64   `json:"duration_ms,omitempty"`
	Source     *string    `json:"source,omitempty"` // producing adapter, e.g. "logfile:SESSION:123"
}

// Query is one captured SQL statement. SQL is kept verbatim.
// Inputs build a Query once and nothing downstream modifies it.
type Query struct {
	SQL      string         `json:"sql"`
	Metadata *QueryMetadata `json:"metadata,omitempty"`
}

// NewQuery builds a Query without metadata.
func NewQuery(sql string) Query {
	return Query{SQL: sql}
}

// UserID returns the metadata user identifier, if any.
func (q Query) UserID() (string, bool) {
	if q.Metadata == nil || q.Metadata.UserID == nil {
		return "", false
	}
	return *q.Metadata.UserID, true
}

// Timestamp returns the metadata event time, if any.
func (q Query) Timestamp() (time.Time, bool) {
	if q.Metadata == nil || q.Metadata.Timestamp == nil {
		return time.Time{}, false
	}
	return *q.Metadata.Timestamp, true
}

// StringPtr returns a *string or nil for empty input.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TimePtr returns a pointer to t, or nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
