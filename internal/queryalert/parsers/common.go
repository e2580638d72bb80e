package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// parseTimestampValue converts a row timestamp into a time.Time.
// Accepted forms: time.Time, ISO-8601 / common log strings (via dateparse),
// and integer or float microseconds since the Unix epoch. Anything else,
// including unparseable strings, yields nil.
func parseTimestampValue(v interface{}) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return nil
		}
		return &parsed
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return microsToTime(float64(i))
		}
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return microsToTime(f)
	case int:
		return microsToTime(float64(t))
	case int64:
		return microsToTime(float64(t))
	case float64:
		return microsToTime(t)
	default:
		return nil
	}
}

func microsToTime(us float64) *time.Time {
	if math.IsNaN(us) || math.IsInf(us, 0) {
		return nil
	}
	if math.Abs(us) > math.MaxInt64/2 {
		return nil
	}
	t := time.UnixMicro(int64(us)).UTC()
	return &t
}

// ptrString returns a *string or nil for empty input.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringOrNil(v interface{}) *string {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		return &s
	case []byte:
		s := strings.TrimSpace(string(t))
		if s == "" {
			return nil
		}
		return &s
	default:
		s := strings.TrimSpace(fmt.Sprint(t))
		if s == "" {
			return nil
		}
		return &s
	}
}

// namedRe wraps a regexp with named groups.
type namedRe struct {
	re *regexp.Regexp
}

func mustNamed(expr string) namedRe {
	return namedRe{re: regexp.MustCompile(expr)}
}

// match returns named group values, or nil when s does not match.
func (n namedRe) match(s string) map[string]string {
	sub := n.re.FindStringSubmatch(s)
	if sub == nil {
		return nil
	}
	out := make(map[string]string, len(sub))
	for i, name := range n.re.SubexpNames() {
		if name != "" {
			out[name] = sub[i]
		}
	}
	return out
}
