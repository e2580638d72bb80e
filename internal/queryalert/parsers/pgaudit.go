package parsers

import (
	"regexp"
	"strconv"
	"strings"
)

// auditPrefixRe matches the fixed seven-field pgaudit prefix. The command
// field may contain spaces ("CREATE TABLE"); object fields may be empty.
// Everything after the match is the statement, which may itself contain commas.
//
// Example message:
//
//	AUDIT: SESSION,1,1,READ,SELECT,TABLE,public.users,SELECT * FROM users,<not logged>
var auditPrefixRe = regexp.MustCompile(
	`^AUDIT:\s*(SESSION|OBJECT),(\d+),(\d+),(\w+),(\w+(?:\s+\w+)*),([^,]*),([^,]*),`,
)

// ParseEventMessage parses a bare pgaudit message (the text starting at
// "AUDIT:"). It returns ErrSkipLine when the message does not carry a
// well-formed prefix.
func ParseEventMessage(message string) (*AuditEntry, error) {
	msg := strings.TrimSpace(message)
	m := auditPrefixRe.FindStringSubmatchIndex(msg)
	if m == nil {
		return nil, ErrSkipLine
	}
	group := func(i int) string { return msg[m[2*i]:m[2*i+1]] }

	stmtID, err := strconv.Atoi(group(2))
	if err != nil {
		return nil, ErrSkipLine
	}
	subID, err := strconv.Atoi(group(3))
	if err != nil {
		return nil, ErrSkipLine
	}

	statement, parameter := splitParameter(strings.TrimSpace(msg[m[1]:]))

	return &AuditEntry{
		AuditType:      group(1),
		StatementID:    stmtID,
		SubstatementID: subID,
		CommandClass:   group(4),
		Command:        group(5),
		ObjectType:     ptrString(group(6)),
		ObjectName:     ptrString(group(7)),
		Statement:      statement,
		Parameter:      parameter,
	}, nil
}

// splitParameter removes a trailing <not logged> marker together with the
// separator before it.
func splitParameter(statement string) (string, *string) {
	if !strings.HasSuffix(statement, NotLogged) {
		return statement, nil
	}
	s := strings.TrimSuffix(statement, NotLogged)
	s = strings.TrimSpace(strings.TrimRight(s, ", \t"))
	return s, ptrString(NotLogged)
}
