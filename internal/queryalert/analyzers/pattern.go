package analyzers

import (
	"regexp"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// rule is one case-insensitive pattern and the description reported when it matches.
type rule struct {
	severity    domain.Severity
	re          *regexp.Regexp
	description string
}

func newRule(sev domain.Severity, expr, description string) rule {
	return rule{
		severity:    sev,
		re:          regexp.MustCompile(`(?i)` + expr),
		description: description,
	}
}

// match is one matched rule.
type match struct {
	severity    domain.Severity
	description string
}

// matchRules scans rules in table order. Tables are declared HIGH, then
// MEDIUM, then LOW, so the result is tier-then-declaration ordered.
func matchRules(rules []rule, sql string) []match {
	var out []match
	for _, r := range rules {
		if r.re.MatchString(sql) {
			out = append(out, match{severity: r.severity, description: r.description})
		}
	}
	return out
}

// synthesize folds all matches into one finding: highest severity, the
// first description in the message, every description under "patterns".
func synthesize(analyzer, messagePrefix string, matches []match) *domain.Finding {
	if len(matches) == 0 {
		return nil
	}
	levels := make([]domain.Severity, 0, len(matches))
	descriptions := make([]string, 0, len(matches))
	for _, m := range matches {
		levels = append(levels, m.severity)
		descriptions = append(descriptions, m.description)
	}
	return &domain.Finding{
		Analyzer: analyzer,
		Severity: domain.MaxSeverity(levels...),
		Message:  messagePrefix + descriptions[0],
		Details:  map[string]any{"patterns": descriptions},
	}
}
