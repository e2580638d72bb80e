package parsers

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// logLineRe matches a Postgres log line written with
// log_line_prefix = '%m:%r:%u@%d:[%p]:' (second precision).
//
// Example:
//
//	2025-01-14 12:00:00 UTC:10.0.0.5(5432):alice@app:[4242]: LOG: AUDIT: SESSION,1,1,READ,SELECT,,,SELECT 1,<not logged>
var logLineRe = mustNamed(
	`^(?P<ts>\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})\s+(?P<tz>\w+)` +
		`:(?P<client>[^:]*):` +
		`(?P<conn>[^:]*)` +
		`:\[(?P<pid>\d+)\]:\s*` +
		`(?P<level>\w+):\s*` +
		`(?P<message>.*)$`,
)

var userDBRe = mustNamed(`^(?P<user>[^@]+)(?:@(?P<db>.+))?$`)

const lineTimeLayout = "2006-01-02 15:04:05"

// LineParser parses full Postgres log lines that carry pgaudit messages.
type LineParser struct{}

// NewLineParser constructs a LineParser.
func NewLineParser() *LineParser {
	return &LineParser{}
}

// ParseLine parses one log line. Lines that do not match the prefix
// layout, or whose message is not a pgaudit record, yield ErrSkipLine.
func (p *LineParser) ParseLine(ctx context.Context, line string) (*AuditEntry, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrSkipLine
	}

	m := logLineRe.match(line)
	if m == nil {
		return nil, ErrSkipLine
	}

	message := m["message"]
	if !strings.HasPrefix(message, "AUDIT:") {
		return nil, ErrSkipLine
	}

	entry, err := ParseEventMessage(message)
	if err != nil {
		return nil, err
	}

	if ts, ok := parseLineTimestamp(m["ts"], m["tz"]); ok {
		entry.Timestamp = &ts
	}
	entry.ClientAddr = ptrString(strings.TrimSpace(m["client"]))
	entry.UserName, entry.DatabaseName = parseUserDB(strings.TrimSpace(m["conn"]))
	entry.LogLevel = ptrString(m["level"])

	if pid, err := strconv.Atoi(m["pid"]); err == nil {
		entry.ProcessID = &pid
		if pid != 0 {
			entry.SessionID = ptrString(strconv.Itoa(pid))
		}
	}

	return entry, nil
}

// parseLineTimestamp reads the second-precision prefix timestamp. A UTC
// zone (any case) yields a UTC instant; any other zone name is read as
// local wall-clock time.
func parseLineTimestamp(ts, tz string) (time.Time, bool) {
	loc := time.Local
	if strings.EqualFold(tz, "UTC") {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(lineTimeLayout, strings.Join(strings.Fields(ts), " "), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseUserDB(conn string) (*string, *string) {
	if conn == "" {
		return nil, nil
	}
	m := userDBRe.match(conn)
	if m == nil {
		return nil, nil
	}
	return ptrString(m["user"]), ptrString(m["db"])
}
