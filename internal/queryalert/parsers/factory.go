package parsers

import (
	"fmt"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// NewParser returns a Parser for the given input format ("text" or "json").
// text expects full Postgres log lines, json expects one log row object per line.
func (f *Factory) NewParser(format string) (Parser, error) {
	switch format {
	case "text", "log", "":
		return NewLineParser(), nil
	case "json", "ndjson", "row":
		return NewRowParser(), nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}
