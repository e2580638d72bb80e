package loadgen

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Kinds of generated traffic.
const (
	KindBenign       = "benign"
	KindInjection    = "injection"
	KindExfiltration = "exfiltration"
	KindBurst        = "burst"
	KindNoise        = "noise"
)

// statement is one generated SQL statement with its pgaudit class and
// command.
type statement struct {
	Kind    string
	Class   string
	Command string
	Object  string // schema-qualified table, empty when not applicable
	SQL     string
}

// Tables named in benign traffic. None of them is on the exfiltration
// analyzer's sensitive list.
var BenignTables = []string{"orders", "products", "inventory", "shipments", "invoices", "reviews"}

// SensitiveTables mirror the tables the exfiltration analyzer watches.
var SensitiveTables = []string{"users", "credentials", "payments", "secrets", "tokens"}

// injectionTemplates take one %s: a random identifier value.
var injectionTemplates = []string{
	"SELECT * FROM orders WHERE id = %s; DROP TABLE orders",
	"SELECT name FROM products WHERE id = %s UNION SELECT password FROM users",
	"SELECT id FROM orders WHERE customer = '%s' OR 1=1",
	"SELECT id FROM orders WHERE customer = '%s' OR 'a'='a'",
	"SELECT id FROM orders WHERE id = %s -- AND tenant_id = 7",
	"SELECT id FROM orders WHERE id = %s AND SLEEP(5)",
	"SELECT id FROM orders WHERE id = %s; UPDATE orders SET total = 0",
	"SELECT id FROM orders WHERE id = %s UNION ALL SELECT token FROM sessions",
}

// exfiltrationTemplates take one %s: a sensitive table or a number.
var exfiltrationTemplates = []string{
	"SELECT * FROM %s",
	"SELECT id, password FROM %s",
	"SELECT * FROM orders LIMIT %s",
	"COPY %s TO '/tmp/dump.csv'",
	"SELECT email, api_key FROM %s",
}

// NoiseMessages are non-audit log messages mixed into generated files.
var NoiseMessages = []string{
	"checkpoint starting: time",
	"checkpoint complete: wrote 42 buffers (0.3%)",
	"connection received: host=10.0.0.4 port=51234",
	"automatic vacuum of table \"postgres.public.orders\": index scans: 0",
	"statement: SET application_name = 'psql'",
}

func benignStatement(f *gofakeit.Faker) statement {
	table := f.RandomString(BenignTables)
	switch f.Number(0, 3) {
	case 0:
		return statement{KindBenign, "READ", "SELECT", "public." + table,
			fmt.Sprintf("SELECT id, created_at FROM %s WHERE id = %d", table, f.Number(1, 100000))}
	case 1:
		return statement{KindBenign, "WRITE", "INSERT", "public." + table,
			fmt.Sprintf("INSERT INTO %s (name, note) VALUES ('%s', '%s')", table, sqlEscape(f.FirstName()), sqlEscape(f.Word()))}
	case 2:
		return statement{KindBenign, "WRITE", "UPDATE", "public." + table,
			fmt.Sprintf("UPDATE %s SET updated_at = now() WHERE id = %d", table, f.Number(1, 100000))}
	default:
		return statement{KindBenign, "READ", "SELECT", "public." + table,
			fmt.Sprintf("SELECT count(id) FROM %s WHERE created_at > now() - interval '1 day' LIMIT %d", table, f.Number(1, 500))}
	}
}

func injectionStatement(f *gofakeit.Faker) statement {
	tmpl := f.RandomString(injectionTemplates)
	return statement{KindInjection, "READ", "SELECT", "",
		fmt.Sprintf(tmpl, fmt.Sprint(f.Number(1, 9999)))}
}

func exfiltrationStatement(f *gofakeit.Faker) statement {
	tmpl := f.RandomString(exfiltrationTemplates)
	arg := f.RandomString(SensitiveTables)
	if strings.Contains(tmpl, "LIMIT") {
		arg = fmt.Sprint(f.Number(1001, 1000000))
	}
	st := statement{KindExfiltration, "READ", "SELECT", "", fmt.Sprintf(tmpl, arg)}
	if strings.HasPrefix(tmpl, "COPY") {
		st.Command = "COPY"
	}
	return st
}

// sqlEscape doubles single quotes for inline literals.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
