// Package input produces the query stream fed to the pipeline.
package input

import (
	"context"
	"fmt"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/parsers"
)

// Source yields queries one at a time. Next returns io.EOF once the
// source is exhausted; any other error is a failure of the source.
type Source interface {
	Next(ctx context.Context) (domain.Query, error)
}

// entryToQuery converts a parsed audit entry into a query tagged with
// "<origin>:<audit_type>:<session|unknown>".
func entryToQuery(origin string, e *parsers.AuditEntry) domain.Query {
	source := fmt.Sprintf("%s:%s:%s", origin, e.AuditType, e.SessionOrUnknown())
	md := &domain.QueryMetadata{
		Timestamp: e.Timestamp,
		UserID:    e.UserName,
		Source:    &source,
	}
	return domain.Query{SQL: e.Statement, Metadata: md}
}
