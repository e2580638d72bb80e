package chain

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// Run modes.
const (
	ModeSeal  = "seal"
	ModeCheck = "check"
)

// RunArgs configures one seal or check run over an NDJSON file.
type RunArgs struct {
	Mode       string
	InputFile  string // empty reads stdin
	OutputFile string // seal mode only; empty writes stdout
	StateFile  string // seal mode: chain state to resume and persist
	StartHash  string // check mode: expected hash_prev of the first record
	RunLog     string // optional NDJSON file the summary is appended to
}

// Summary records the outcome of one run.
type Summary struct {
	Phase      string  `json:"phase"`
	Mode       string  `json:"mode"`
	InputFile  string  `json:"input_file"`
	OutputFile string  `json:"output_file,omitempty"`
	Records    int     `json:"records"`
	Tampered   []int   `json:"tampered,omitempty"`
	Head       string  `json:"head"`
	Status     string  `json:"status"` // sealed | pass | fail
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	DurationMS float64 `json:"duration_ms"`
}

// RunFile seals or checks one file and appends the summary to the run
// log when configured. A failed check is reported through Summary.Status,
// not as an error.
func RunFile(args RunArgs, stdin io.Reader, stdout io.Writer) (Summary, error) {
	log := logger.L()
	start := time.Now().UTC()
	log.Infow("chain run start", "mode", args.Mode, "input", args.InputFile, "output", args.OutputFile)

	summary := Summary{
		Phase:      "verify",
		Mode:       args.Mode,
		InputFile:  args.InputFile,
		OutputFile: args.OutputFile,
		StartTime:  start.Format(time.RFC3339),
	}

	in := stdin
	if args.InputFile != "" {
		f, err := os.Open(args.InputFile)
		if err != nil {
			return summary, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	switch args.Mode {
	case ModeSeal:
		out := stdout
		if args.OutputFile != "" {
			f, err := os.Create(args.OutputFile)
			if err != nil {
				return summary, fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		st, err := LoadState(args.StateFile)
		if err != nil {
			return summary, err
		}
		log.Debugw("state loaded", "index", st.LastChainIndex, "head", st.LastHeadHash)
		next, n, err := Compute(in, out, st)
		if err != nil {
			return summary, err
		}
		if err := SaveState(args.StateFile, next); err != nil {
			return summary, err
		}
		summary.Records = n
		summary.Head = next.LastHeadHash
		summary.Status = "sealed"

	case ModeCheck:
		res, err := Verify(in, args.StartHash)
		if err != nil {
			return summary, err
		}
		summary.Records = res.Records
		summary.Tampered = res.Tampered
		summary.Head = res.Head
		summary.Status = "pass"
		if !res.OK() {
			summary.Status = "fail"
		}

	default:
		return summary, fmt.Errorf("unknown chain mode %q", args.Mode)
	}

	end := time.Now().UTC()
	summary.EndTime = end.Format(time.RFC3339)
	summary.DurationMS = float64(end.Sub(start).Microseconds()) / 1000

	if args.RunLog != "" {
		if err := appendRunLog(args.RunLog, summary); err != nil {
			log.Warnw("failed to write run log summary", "err", err.Error())
		}
	}
	log.Infow("chain run end", "status", summary.Status, "records", summary.Records)
	return summary, nil
}

func appendRunLog(path string, v interface{}) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(v)
}
