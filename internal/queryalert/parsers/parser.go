package parsers

import (
	"context"
	"errors"
)

// ErrSkipLine indicates the parser couldn't parse the line but processing should continue.
var ErrSkipLine = errors.New("skip line")

// Parser converts one raw log record into an AuditEntry.
type Parser interface {
	// ParseLine returns the entry for the line, or ErrSkipLine if the line
	// is not a pgaudit record. No other error is returned for content.
	ParseLine(ctx context.Context, line string) (*AuditEntry, error)
}
