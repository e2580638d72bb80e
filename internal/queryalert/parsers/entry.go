package parsers

import "time"

// Audit types emitted by pgaudit.
const (
	AuditSession = "SESSION"
	AuditObject  = "OBJECT"
)

// NotLogged is the pgaudit marker written in place of bind parameters
// when pgaudit.log_parameter is off.
const NotLogged = "<not logged>"

// AuditEntry is one pgaudit record. The first block comes from the
// AUDIT message itself; Timestamp, UserName, DatabaseName and SessionID
// come from the surrounding log line or API row; the last block is only
// populated by the log line parser.
type AuditEntry struct {
	AuditType      string  `json:"audit_type"`
	StatementID    int     `json:"statement_id"`
	SubstatementID int     `json:"substatement_id"`
	CommandClass   string  `json:"command_class"`
	Command        string  `json:"command"`
	ObjectType     *string `json:"object_type,omitempty"`
	ObjectName     *string `json:"object_name,omitempty"`
	Statement      string  `json:"statement"`
	Parameter      *string `json:"parameter,omitempty"`

	Timestamp    *time.Time `json:"timestamp,omitempty"`
	UserName     *string    `json:"user_name,omitempty"`
	DatabaseName *string    `json:"database_name,omitempty"`
	SessionID    *string    `json:"session_id,omitempty"`

	ClientAddr *string `json:"client_addr,omitempty"`
	ProcessID  *int    `json:"process_id,omitempty"`
	LogLevel   *string `json:"log_level,omitempty"`
}

// SessionOrUnknown returns the session id, or "unknown" when absent.
func (e *AuditEntry) SessionOrUnknown() string {
	if e.SessionID == nil || *e.SessionID == "" {
		return "unknown"
	}
	return *e.SessionID
}
