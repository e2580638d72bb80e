package output

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// Supported database/sql drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DefaultAlertTable is used when no table is configured.
const DefaultAlertTable = "query_alerts"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Execer is the subset of *sql.DB the sink needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// OpenDB opens and pings a database for the SQL sink.
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if err := checkDriver(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// SQLSink stores one row per alert.
type SQLSink struct {
	db     Execer
	driver string
	table  string
	insert string
}

func NewSQLSink(db Execer, driver, table string) (*SQLSink, error) {
	if err := checkDriver(driver); err != nil {
		return nil, err
	}
	if table == "" {
		table = DefaultAlertTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("sql sink: invalid table name %q", table)
	}
	s := &SQLSink{db: db, driver: driver, table: table}
	s.insert = fmt.Sprintf(
		"INSERT INTO %s (id, created_at, severity, sql_text, user_id, findings) VALUES (%s)",
		table, placeholders(driver, 6))
	return s, nil
}

func (s *SQLSink) Name() string { return "sql" }

// EnsureSchema creates the alert table when it does not exist.
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch s.driver {
	case DriverMySQL:
		ddl = `CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(36) PRIMARY KEY,
	created_at DATETIME(6) NOT NULL,
	severity VARCHAR(16) NOT NULL,
	sql_text LONGTEXT NOT NULL,
	user_id VARCHAR(255) NULL,
	findings JSON NOT NULL
)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	severity TEXT NOT NULL,
	sql_text TEXT NOT NULL,
	user_id TEXT NULL,
	findings JSONB NOT NULL
)`
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(ddl, s.table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLSink) Send(ctx context.Context, alert domain.Alert) error {
	findings, err := json.Marshal(alert.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}

	var userID sql.NullString
	if id, ok := alert.Query.UserID(); ok {
		userID = sql.NullString{String: id, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, s.insert,
		alert.ID,
		alert.CreatedAt.UTC(),
		alert.Severity().String(),
		alert.Query.SQL,
		userID,
		string(findings),
	)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", alert.ID, err)
	}
	return nil
}

func checkDriver(driver string) error {
	switch driver {
	case DriverPostgres, DriverMySQL:
		return nil
	default:
		return fmt.Errorf("unsupported sql driver %q (want %s or %s)", driver, DriverPostgres, DriverMySQL)
	}
}

func placeholders(driver string, n int) string {
	marks := make([]string, n)
	for i := range marks {
		if driver == DriverPostgres {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}
