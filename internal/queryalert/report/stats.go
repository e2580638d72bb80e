package report

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Stats summarises the alerts that matched.
type Stats struct {
	InputRecords   int
	MatchedRecords int
	ErrorRecords   int
	BySeverity     map[string]int
	ByAnalyzer     map[string]int // counts findings, not alerts
	ByUser         map[string]int
	FirstCreated   *time.Time
	LastCreated    *time.Time
}

func NewStats() *Stats {
	return &Stats{
		BySeverity: make(map[string]int),
		ByAnalyzer: make(map[string]int),
		ByUser:     make(map[string]int),
	}
}

func (s *Stats) IncrementInput() { s.InputRecords++ }

func (s *Stats) IncrementError() { s.ErrorRecords++ }

// IncrementMatched folds one matched record into the breakdowns.
func (s *Stats) IncrementMatched(r Record) {
	s.MatchedRecords++

	if sev, ok := GetString(r, "severity"); ok {
		s.BySeverity[sev]++
	}
	for _, f := range Findings(r) {
		if a, ok := f["analyzer"].(string); ok {
			s.ByAnalyzer[a]++
		}
	}
	user, ok := GetPathString(r, "query", "metadata", "user_id")
	if !ok {
		user = "(unknown)"
	}
	s.ByUser[user]++

	if created, err := ParseTimestamp(r["created_at"]); err == nil {
		if s.FirstCreated == nil || created.Before(*s.FirstCreated) {
			s.FirstCreated = &created
		}
		if s.LastCreated == nil || created.After(*s.LastCreated) {
			s.LastCreated = &created
		}
	}
}

// PrintSummary writes a human-readable summary. Breakdowns are sorted by
// count descending, then name.
func (s *Stats) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Total alerts read: %d\n", s.InputRecords)
	if s.ErrorRecords > 0 {
		fmt.Fprintf(w, "  Unreadable lines: %d\n", s.ErrorRecords)
	}
	if s.FirstCreated != nil && s.LastCreated != nil {
		fmt.Fprintf(w, "  Time range: %s to %s\n",
			s.FirstCreated.UTC().Format(time.RFC3339),
			s.LastCreated.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Matched: %d\n\n", s.MatchedRecords)

	sections := []struct {
		title string
		m     map[string]int
	}{
		{"By severity", s.BySeverity},
		{"By analyzer", s.ByAnalyzer},
		{"By user", s.ByUser},
	}
	for _, sec := range sections {
		if len(sec.m) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", sec.title)
		printSorted(w, sec.m, "    ")
		fmt.Fprintf(w, "\n")
	}
}

func printSorted(w io.Writer, m map[string]int, indent string) {
	type kv struct {
		key   string
		value int
	}
	pairs := make([]kv, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value == pairs[j].value {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value > pairs[j].value
	})
	for _, p := range pairs {
		fmt.Fprintf(w, "%s%s: %d\n", indent, p.key, p.value)
	}
}

// SummaryMap returns the statistics for JSON output.
func (s *Stats) SummaryMap() map[string]any {
	out := map[string]any{
		"total_alerts":   s.InputRecords,
		"matched_alerts": s.MatchedRecords,
		"error_lines":    s.ErrorRecords,
		"by_severity":    s.BySeverity,
		"by_analyzer":    s.ByAnalyzer,
		"by_user":        s.ByUser,
	}
	if s.FirstCreated != nil && s.LastCreated != nil {
		out["time_range"] = map[string]string{
			"start": s.FirstCreated.UTC().Format(time.RFC3339),
			"end":   s.LastCreated.UTC().Format(time.RFC3339),
		}
	}
	return out
}
