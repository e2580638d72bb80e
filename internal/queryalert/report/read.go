package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadRecords streams NDJSON records from files, or stdin when files is
// empty, on a buffered channel that is closed at the end. Undecodable
// lines and unopenable files are sent as errors and reading continues.
func ReadRecords(files []string, stdin io.Reader) <-chan RecordResult {
	ch := make(chan RecordResult, 100)

	go func() {
		defer close(ch)

		if len(files) == 0 {
			if stdin == nil {
				stdin = os.Stdin
			}
			readFrom(stdin, "stdin", ch)
			return
		}

		for _, file := range files {
			f, err := os.Open(file)
			if err != nil {
				ch <- RecordResult{Err: fmt.Errorf("failed to open file %s: %w", file, err)}
				continue
			}
			readFrom(f, file, ch)
			f.Close()
		}
	}()

	return ch
}

func readFrom(r io.Reader, source string, ch chan<- RecordResult) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			ch <- RecordResult{Err: fmt.Errorf("JSON parse error in %s line %d: %w", source, lineNumber, err)}
			continue
		}
		ch <- RecordResult{Record: rec}
	}

	if err := scanner.Err(); err != nil {
		ch <- RecordResult{Err: fmt.Errorf("scanner error in %s: %w", source, err)}
	}
}

// WriteRecordNDJSON writes one record as a single JSON line.
func WriteRecordNDJSON(w io.Writer, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
