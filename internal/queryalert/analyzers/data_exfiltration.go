package analyzers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

const sensitiveTables = `(?:users|credentials|payments|secrets|tokens)`

var dataExfiltrationRules = []rule{
	newRule(domain.SeverityHigh, `SELECT\s+\*\s+FROM\s+`+sensitiveTables+`\b`, "SELECT * from sensitive table"),
	newRule(domain.SeverityHigh, `\bINTO\s+OUTFILE\b`, "INTO OUTFILE export"),
	newRule(domain.SeverityHigh, `\bINTO\s+DUMPFILE\b`, "INTO DUMPFILE export"),
	newRule(domain.SeverityHigh, `\bCOPY\s+\w+\s+TO\b`, "COPY TO export"),

	newRule(domain.SeverityMedium, `\bpassword\b`, "sensitive column: password"),
	newRule(domain.SeverityMedium, `\bsecret\b`, "sensitive column: secret"),
	newRule(domain.SeverityMedium, `\btoken\b`, "sensitive column: token"),
	newRule(domain.SeverityMedium, `\bapi_key\b`, "sensitive column: api_key"),
	newRule(domain.SeverityMedium, `\bcredit_card\b`, "sensitive column: credit_card"),
	newRule(domain.SeverityMedium, `\bssn\b`, "sensitive column: ssn"),
	newRule(domain.SeverityMedium, `\bprivate_key\b`, "sensitive column: private_key"),
}

var (
	limitRe  = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	offsetRe = regexp.MustCompile(`(?i)\bOFFSET\s+(\d+)`)
)

// LargeLimitThreshold is the LIMIT above which a query is reported.
const LargeLimitThreshold = 1000

// DataExfiltrationAnalyzer flags bulk reads of sensitive data and file exports.
// It is stateless and safe for concurrent use.
type DataExfiltrationAnalyzer struct{}

func NewDataExfiltrationAnalyzer() *DataExfiltrationAnalyzer {
	return &DataExfiltrationAnalyzer{}
}

func (a *DataExfiltrationAnalyzer) Name() string { return NameDataExfiltration }

func (a *DataExfiltrationAnalyzer) Analyze(_ context.Context, q domain.Query) (*domain.Finding, error) {
	matches := matchRules(dataExfiltrationRules, q.SQL)

	// only the first LIMIT / OFFSET clause is considered
	if m := limitRe.FindStringSubmatch(q.SQL); m != nil && exceeds(m[1], LargeLimitThreshold) {
		matches = append(matches, match{domain.SeverityLow, fmt.Sprintf("large LIMIT: %s", m[1])})
	}
	if m := offsetRe.FindStringSubmatch(q.SQL); m != nil && exceeds(m[1], 0) {
		matches = append(matches, match{domain.SeverityLow, fmt.Sprintf("OFFSET pagination: %s", m[1])})
	}

	return synthesize(NameDataExfiltration, "Data exfiltration pattern detected: ", matches), nil
}

// exceeds reports whether the decimal digits in s denote a value above n.
// Values too large for uint64 always exceed.
func exceeds(s string, n uint64) bool {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return true
	}
	return v > n
}
