package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// GetString returns the string at key, if present.
func GetString(r Record, key string) (string, bool) {
	if v, ok := r[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// GetPath walks nested objects, e.g. GetPath(r, "query", "metadata", "user_id").
func GetPath(r Record, keys ...string) (any, bool) {
	var cur any = r
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// GetPathString is GetPath restricted to string leaves.
func GetPathString(r Record, keys ...string) (string, bool) {
	v, ok := GetPath(r, keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Findings returns the findings array as objects, skipping malformed items.
func Findings(r Record) []map[string]any {
	raw, ok := r["findings"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(map[string]any); ok {
			out = append(out, f)
		}
	}
	return out
}

// ParseTimestamp accepts RFC3339 strings first, then anything dateparse
// understands. Zone-less values are read as UTC.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is nil")
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, nil
		}
		parsed, err := dateparse.ParseIn(t, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", t)
		}
		return parsed, nil
	case time.Time:
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type: %T", v)
	}
}

// ParseDuration extends time.ParseDuration with a day unit: "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid days value: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("days cannot be negative: %d", days)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}

func matchesAny(target string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(target, c) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
