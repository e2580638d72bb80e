package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the ordered alert level shared by findings and alerts.
// Hierarchy (lowest to highest): Low < Medium < High.
type Severity int

const (
	SeverityLow    Severity = 1
	SeverityMedium Severity = 2
	SeverityHigh   Severity = 3
)

// Severities lists every level from highest to lowest, the order in which
// rule tiers are scanned.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

var severityNames = map[Severity]string{
	SeverityLow:    "LOW",
	SeverityMedium: "MEDIUM",
	SeverityHigh:   "HIGH",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Valid reports whether s is one of the three defined levels.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// ParseSeverity converts a level name (case-insensitive) to a Severity.
func ParseSeverity(name string) (Severity, error) {
	up := strings.ToUpper(strings.TrimSpace(name))
	for level, levelName := range severityNames {
		if levelName == up {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// MaxSeverity returns the highest level in levels, or Low when levels is empty.
func MaxSeverity(levels ...Severity) Severity {
	highest := SeverityLow
	for _, l := range levels {
		if l > highest {
			highest = l
		}
	}
	return highest
}

// MarshalJSON encodes the severity as its level name.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal severity: invalid level %d", int(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the level name or its numeric value.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseSeverity(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal severity: %w", err)
	}
	if !Severity(n).Valid() {
		return fmt.Errorf("unmarshal severity: invalid level %d", n)
	}
	*s = Severity(n)
	return nil
}
