package analyzers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

func analyze(t *testing.T, a Analyzer, sql string) *domain.Finding {
	t.Helper()
	f, err := a.Analyze(context.Background(), domain.NewQuery(sql))
	require.NoError(t, err)
	return f
}

func patterns(t *testing.T, f *domain.Finding) []string {
	t.Helper()
	p, ok := f.Details["patterns"].([]string)
	require.True(t, ok, "details.patterns has type %T", f.Details["patterns"])
	return p
}

func TestSQLInjection(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		severity domain.Severity
		first    string
	}{
		{"stacked drop", "SELECT 1; DROP TABLE users", domain.SeverityHigh, "stacked DROP"},
		{"stacked delete lowercase", "select 1;delete from t", domain.SeverityHigh, "stacked DELETE"},
		{"union select", "SELECT name FROM t WHERE id=1 UNION SELECT password FROM users", domain.SeverityHigh, "UNION SELECT"},
		{"union all select", "SELECT a FROM t UNION ALL SELECT b FROM u", domain.SeverityHigh, "UNION ALL SELECT"},
		{"tautology", "SELECT * FROM users WHERE id=1 OR 1=1", domain.SeverityMedium, "tautology OR 1=1"},
		{"quoted tautology", "SELECT * FROM t WHERE name='' OR '1'='1'", domain.SeverityMedium, "tautology OR '1'='1'"},
		{"double quoted tautology", `SELECT * FROM t WHERE a="" OR "1"="1"`, domain.SeverityMedium, `tautology OR "1"="1"`},
		{"letter tautology", "SELECT * FROM t WHERE a='' or 'a'='a'", domain.SeverityMedium, "tautology OR 'x'='x'"},
		{"line comment", "SELECT * FROM t WHERE name='admin'--", domain.SeverityMedium, "comment --"},
		{"block comment", "SELECT /* hint */ 1", domain.SeverityMedium, "comment /*"},
		{"hash comment", "SELECT * FROM t WHERE a=1 #", domain.SeverityMedium, "comment #"},
		{"sleep", "SELECT SLEEP(5)", domain.SeverityLow, "time-based SLEEP"},
		{"benchmark", "SELECT BENCHMARK(1000000, MD5('a'))", domain.SeverityLow, "time-based BENCHMARK"},
		{"extractvalue", "SELECT extractvalue(1, concat(0x7e, version()))", domain.SeverityLow, "error-based EXTRACTVALUE"},
		{"updatexml", "SELECT updatexml(null, 1, null)", domain.SeverityLow, "error-based UPDATEXML"},
	}

	a := NewSQLInjectionAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := analyze(t, a, tt.sql)
			require.NotNil(t, f)
			assert.Equal(t, NameSQLInjection, f.Analyzer)
			assert.Equal(t, tt.severity, f.Severity)
			assert.Equal(t, "SQL injection pattern detected: "+tt.first, f.Message)
			assert.Equal(t, tt.first, patterns(t, f)[0])
		})
	}
}

func TestSQLInjection_Benign(t *testing.T) {
	a := NewSQLInjectionAnalyzer()
	for _, sql := range []string{
		"SELECT id, name FROM products WHERE id = $1",
		"INSERT INTO orders (id, total) VALUES (1, 10)",
		"UPDATE accounts SET balance = balance - 1 WHERE id = 2",
		"SELECT * FROM orders WHERE vendor = 'ORACLE'",
		"",
	} {
		assert.Nil(t, analyze(t, a, sql), "sql %q", sql)
	}
}

func TestSQLInjection_AllMatchesCollected(t *testing.T) {
	// stacked DROP (HIGH), comment -- (MEDIUM), time-based SLEEP (LOW)
	f := analyze(t, NewSQLInjectionAnalyzer(), "SELECT SLEEP(1); DROP TABLE users --")
	require.NotNil(t, f)
	assert.Equal(t, domain.SeverityHigh, f.Severity)
	assert.Equal(t, []string{"stacked DROP", "comment --", "time-based SLEEP"}, patterns(t, f))
}

func TestSQLInjection_StackedWaitforAlsoLow(t *testing.T) {
	f := analyze(t, NewSQLInjectionAnalyzer(), "SELECT 1; WAITFOR DELAY '0:0:5'")
	require.NotNil(t, f)
	assert.Equal(t, domain.SeverityHigh, f.Severity)
	assert.Equal(t, []string{"stacked WAITFOR", "time-based WAITFOR"}, patterns(t, f))
}

func TestDataExfiltration(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		severity domain.Severity
		want     []string
	}{
		{"select star users", "SELECT * FROM users", domain.SeverityHigh, []string{"SELECT * from sensitive table"}},
		{"select star payments lowercase", "select *  from payments where 1", domain.SeverityHigh, []string{"SELECT * from sensitive table"}},
		{"into outfile", "SELECT a FROM t INTO OUTFILE '/tmp/x'", domain.SeverityHigh, []string{"INTO OUTFILE export"}},
		{"into dumpfile", "SELECT a FROM t INTO DUMPFILE '/tmp/x'", domain.SeverityHigh, []string{"INTO DUMPFILE export"}},
		{"copy to", "COPY orders TO '/tmp/orders.csv'", domain.SeverityHigh, []string{"COPY TO export"}},
		{"sensitive columns", "SELECT email, password, api_key FROM accounts", domain.SeverityMedium,
			[]string{"sensitive column: password", "sensitive column: api_key"}},
		{"large limit", "SELECT id FROM orders LIMIT 5000", domain.SeverityLow, []string{"large LIMIT: 5000"}},
		{"offset", "SELECT id FROM orders LIMIT 100 OFFSET 200", domain.SeverityLow, []string{"OFFSET pagination: 200"}},
		{"limit and offset", "SELECT id FROM orders LIMIT 1001 OFFSET 1", domain.SeverityLow,
			[]string{"large LIMIT: 1001", "OFFSET pagination: 1"}},
		{"huge limit", "SELECT id FROM orders LIMIT 99999999999999999999999", domain.SeverityLow,
			[]string{"large LIMIT: 99999999999999999999999"}},
		{"mixed tiers", "SELECT * FROM users WHERE token = 'x' LIMIT 2000", domain.SeverityHigh,
			[]string{"SELECT * from sensitive table", "sensitive column: token", "large LIMIT: 2000"}},
	}

	a := NewDataExfiltrationAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := analyze(t, a, tt.sql)
			require.NotNil(t, f)
			assert.Equal(t, NameDataExfiltration, f.Analyzer)
			assert.Equal(t, tt.severity, f.Severity)
			assert.Equal(t, tt.want, patterns(t, f))
			assert.Equal(t, "Data exfiltration pattern detected: "+tt.want[0], f.Message)
		})
	}
}

func TestDataExfiltration_Benign(t *testing.T) {
	a := NewDataExfiltrationAnalyzer()
	for _, sql := range []string{
		"SELECT id, name FROM products",
		"SELECT * FROM products",
		"SELECT * FROM users_archive_view",
		"SELECT id FROM orders LIMIT 1000",
		"SELECT id FROM orders LIMIT 10 OFFSET 0",
		"SELECT passwords_reset_count FROM stats",
	} {
		assert.Nil(t, analyze(t, a, sql), "sql %q", sql)
	}
}

func TestPatternAnalyzers_Idempotent(t *testing.T) {
	sql := "SELECT * FROM users WHERE id=1 OR 1=1 LIMIT 5000"
	for _, a := range []Analyzer{NewSQLInjectionAnalyzer(), NewDataExfiltrationAnalyzer()} {
		assert.Equal(t, analyze(t, a, sql), analyze(t, a, sql), a.Name())
	}
}
