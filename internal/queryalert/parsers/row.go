package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// ParseLogRow parses one structured row as returned by the log analytics
// endpoint:
//
//	{"event_message": "AUDIT: SESSION,...", "timestamp": 1736856000000000,
//	 "parsed": {"user_name": "alice", "database_name": "app", "session_id": "..."}}
//
// The row must carry an event_message starting with "AUDIT:". The timestamp
// may be an ISO-8601 string or microseconds since the epoch; a malformed
// timestamp leaves Timestamp nil rather than rejecting the row.
func ParseLogRow(row map[string]interface{}) (*AuditEntry, error) {
	msg, _ := row["event_message"].(string)
	if msg == "" || !strings.HasPrefix(msg, "AUDIT:") {
		return nil, ErrSkipLine
	}

	entry, err := ParseEventMessage(msg)
	if err != nil {
		return nil, err
	}

	entry.Timestamp = parseTimestampValue(row["timestamp"])
	entry.UserName = rowField(row, "user_name")
	entry.DatabaseName = rowField(row, "database_name")
	entry.SessionID = rowField(row, "session_id")
	return entry, nil
}

// rowField looks a key up under "parsed" first, then at the top level,
// then inside the first element of a "metadata" array (the shape the
// analytics endpoint returns when the row is not flattened).
func rowField(row map[string]interface{}, key string) *string {
	if parsed, ok := row["parsed"].(map[string]interface{}); ok {
		if v, ok := parsed[key]; ok && v != nil {
			return stringOrNil(v)
		}
	}
	if v, ok := row[key]; ok {
		return stringOrNil(v)
	}
	if md := firstMap(row["metadata"]); md != nil {
		if parsed := firstMap(md["parsed"]); parsed != nil {
			return stringOrNil(parsed[key])
		}
	}
	return nil
}

// firstMap returns v as a map, or its first element when v is an array of maps.
func firstMap(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		if len(t) > 0 {
			m, _ := t[0].(map[string]interface{})
			return m
		}
	}
	return nil
}

// RowParser reads NDJSON where every line is one log row object.
type RowParser struct{}

// NewRowParser constructs a RowParser.
func NewRowParser() *RowParser {
	return &RowParser{}
}

// ParseLine decodes a JSON row and delegates to ParseLogRow. Lines that
// are not JSON objects yield ErrSkipLine.
func (p *RowParser) ParseLine(ctx context.Context, line string) (*AuditEntry, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "{") {
		return nil, ErrSkipLine
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.UseNumber()
	var row map[string]interface{}
	if err := dec.Decode(&row); err != nil {
		return nil, ErrSkipLine
	}
	return ParseLogRow(row)
}
