package report

import (
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// FilterByMinSeverity keeps alerts at or above min.
func FilterByMinSeverity(min domain.Severity) RecordFilter {
	return func(r Record) bool {
		s, ok := GetString(r, "severity")
		if !ok {
			return false
		}
		sev, err := domain.ParseSeverity(s)
		if err != nil {
			return false
		}
		return sev >= min
	}
}

// FilterByAnalyzer keeps alerts carrying a finding from any of names.
func FilterByAnalyzer(names []string) RecordFilter {
	return func(r Record) bool {
		for _, f := range Findings(r) {
			if a, ok := f["analyzer"].(string); ok && matchesAny(a, names) {
				return true
			}
		}
		return false
	}
}

// FilterByUser matches query.metadata.user_id, case-insensitively.
func FilterByUser(user string) RecordFilter {
	return func(r Record) bool {
		u, ok := GetPathString(r, "query", "metadata", "user_id")
		return ok && matchesAny(u, []string{user})
	}
}

// FilterBySource matches a substring of query.metadata.source, e.g.
// "pgaudit" or a session id.
func FilterBySource(substr string) RecordFilter {
	return func(r Record) bool {
		s, ok := GetPathString(r, "query", "metadata", "source")
		return ok && containsFold(s, substr)
	}
}

// FilterBySQL matches a substring of the SQL text.
func FilterBySQL(substr string) RecordFilter {
	return func(r Record) bool {
		s, ok := GetPathString(r, "query", "sql")
		return ok && containsFold(s, substr)
	}
}

// FilterByTime keeps alerts created on or after a cutoff. last, when set,
// takes precedence over since and is measured back from now.
func FilterByTime(since time.Time, last time.Duration, now func() time.Time) RecordFilter {
	if now == nil {
		now = time.Now
	}
	return func(r Record) bool {
		created, err := ParseTimestamp(r["created_at"])
		if err != nil {
			return false
		}
		if last > 0 {
			return !created.Before(now().Add(-last))
		}
		if !since.IsZero() {
			return !created.Before(since)
		}
		return true
	}
}

// matchAll ANDs filters; no filters matches everything.
func matchAll(r Record, filters []RecordFilter) bool {
	for _, f := range filters {
		if !f(r) {
			return false
		}
	}
	return true
}
