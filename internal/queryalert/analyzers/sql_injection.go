package analyzers

import (
	"context"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

var sqlInjectionRules = []rule{
	// stacked statements and UNION-based extraction
	newRule(domain.SeverityHigh, `;\s*DROP\b`, "stacked DROP"),
	newRule(domain.SeverityHigh, `;\s*DELETE\b`, "stacked DELETE"),
	newRule(domain.SeverityHigh, `;\s*UPDATE\b`, "stacked UPDATE"),
	newRule(domain.SeverityHigh, `;\s*INSERT\b`, "stacked INSERT"),
	newRule(domain.SeverityHigh, `;\s*ALTER\b`, "stacked ALTER"),
	newRule(domain.SeverityHigh, `;\s*CREATE\b`, "stacked CREATE"),
	newRule(domain.SeverityHigh, `;\s*TRUNCATE\b`, "stacked TRUNCATE"),
	newRule(domain.SeverityHigh, `;\s*WAITFOR\b`, "stacked WAITFOR"),
	newRule(domain.SeverityHigh, `\bUNION\s+ALL\s+SELECT\b`, "UNION ALL SELECT"),
	newRule(domain.SeverityHigh, `\bUNION\s+SELECT\b`, "UNION SELECT"),

	// tautologies and comment truncation
	newRule(domain.SeverityMedium, `\bOR\s+1\s*=\s*1\b`, "tautology OR 1=1"),
	newRule(domain.SeverityMedium, `\bOR\s+'1'\s*=\s*'1'`, "tautology OR '1'='1'"),
	newRule(domain.SeverityMedium, `\bOR\s+"1"\s*=\s*"1"`, `tautology OR "1"="1"`),
	newRule(domain.SeverityMedium, `\bOR\s+'[a-z]'\s*=\s*'[a-z]'`, "tautology OR 'x'='x'"),
	newRule(domain.SeverityMedium, `--`, "comment --"),
	newRule(domain.SeverityMedium, `/\*`, "comment /*"),
	newRule(domain.SeverityMedium, `#`, "comment #"),

	// time-based and error-based probes
	newRule(domain.SeverityLow, `\bSLEEP\s*\(`, "time-based SLEEP"),
	newRule(domain.SeverityLow, `\bWAITFOR\b`, "time-based WAITFOR"),
	newRule(domain.SeverityLow, `\bBENCHMARK\s*\(`, "time-based BENCHMARK"),
	newRule(domain.SeverityLow, `\bEXTRACTVALUE\s*\(`, "error-based EXTRACTVALUE"),
	newRule(domain.SeverityLow, `\bUPDATEXML\s*\(`, "error-based UPDATEXML"),
}

// SQLInjectionAnalyzer flags statements carrying common injection payloads.
// It is stateless and safe for concurrent use.
type SQLInjectionAnalyzer struct{}

func NewSQLInjectionAnalyzer() *SQLInjectionAnalyzer {
	return &SQLInjectionAnalyzer{}
}

func (a *SQLInjectionAnalyzer) Name() string { return NameSQLInjection }

func (a *SQLInjectionAnalyzer) Analyze(_ context.Context, q domain.Query) (*domain.Finding, error) {
	return synthesize(NameSQLInjection, "SQL injection pattern detected: ", matchRules(sqlInjectionRules, q.SQL)), nil
}
