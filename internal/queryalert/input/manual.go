package input

import (
	"context"
	"io"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// ManualSource replays a fixed list of queries.
type ManualSource struct {
	queries []domain.Query
	index   int
}

// NewManualSource copies queries so later changes to the slice are not observed.
func NewManualSource(queries ...domain.Query) *ManualSource {
	cp := make([]domain.Query, len(queries))
	copy(cp, queries)
	return &ManualSource{queries: cp}
}

// FromSQL builds a source of bare statements without metadata.
func FromSQL(statements ...string) *ManualSource {
	queries := make([]domain.Query, 0, len(statements))
	for _, s := range statements {
		queries = append(queries, domain.NewQuery(s))
	}
	return &ManualSource{queries: queries}
}

func (s *ManualSource) Next(ctx context.Context) (domain.Query, error) {
	if err := ctx.Err(); err != nil {
		return domain.Query{}, err
	}
	if s.index >= len(s.queries) {
		return domain.Query{}, io.EOF
	}
	q := s.queries[s.index]
	s.index++
	return q, nil
}

// Len returns the number of queries held.
func (s *ManualSource) Len() int { return len(s.queries) }
