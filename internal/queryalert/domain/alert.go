package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Finding is the single result one analyzer produces for one query.
// Details is free-form; pattern analyzers store the matched rule
// descriptions under "patterns".
type Finding struct {
	Analyzer string         `json:"analyzer"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// Alert aggregates the findings raised for one query.
// Findings keep analyzer registration order. An Alert may hold zero
// findings; the pipeline simply never emits one.
type Alert struct {
	ID        string    `json:"id"`
	Query     Query     `json:"query"`
	Findings  []Finding `json:"findings"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAlert builds an alert stamped with a fresh id and the current time.
func NewAlert(q Query, findings []Finding) Alert {
	copied := make([]Finding, len(findings))
	copy(copied, findings)
	return Alert{
		ID:        uuid.NewString(),
		Query:     q,
		Findings:  copied,
		CreatedAt: time.Now().UTC(),
	}
}

// Severity is the highest finding severity. An alert with no findings
// resolves to Low; check len(Findings) when emptiness matters.
func (a Alert) Severity() Severity {
	levels := make([]Severity, 0, len(a.Findings))
	for _, f := range a.Findings {
		levels = append(levels, f.Severity)
	}
	return MaxSeverity(levels...)
}

// Analyzers returns the analyzer names in finding order.
func (a Alert) Analyzers() []string {
	names := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		names = append(names, f.Analyzer)
	}
	return names
}

// MarshalJSON adds the derived "severity" field so consumers of the
// encoded alert do not have to recompute it.
func (a Alert) MarshalJSON() ([]byte, error) {
	type plain Alert
	return json.Marshal(struct {
		plain
		Severity Severity `json:"severity"`
	}{plain(a), a.Severity()})
}
