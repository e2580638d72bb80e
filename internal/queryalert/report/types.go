// Package report filters and summarises alert NDJSON files, such as the
// output of the file sink.
package report

import "time"

// Record is one alert as decoded from NDJSON. Unknown fields, including
// the hash chain fields, are preserved on output.
type Record = map[string]any

// Options holds everything the report command can ask for.
type Options struct {
	InputFiles []string // empty reads stdin
	OutputFile string   // empty writes stdout

	MinSeverity string   // LOW, MEDIUM or HIGH
	Analyzers   []string // keep alerts with a finding from any of these
	User        string
	Source      string // substring of query.metadata.source
	SQLContains string

	Since        time.Time
	LastDuration time.Duration

	Summary bool
	Limit   int // 0 means no limit

	Now func() time.Time // clock for LastDuration; defaults to time.Now
}

// RecordFilter reports whether a record should be kept. Filters treat a
// missing field as a non-match.
type RecordFilter func(Record) bool

// RecordResult is one item read from input: a record or the error that
// prevented decoding it.
type RecordResult struct {
	Record Record
	Err    error
}
