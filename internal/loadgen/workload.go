package loadgen

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text" // postgres log lines, as read by the line parser
	FormatJSON = "json" // log API rows, as read by the row parser
)

// Workload describes a synthetic pgaudit log to generate.
type Workload struct {
	Format    string        `yaml:"format"`
	Output    string        `yaml:"output"`
	Seed      int64         `yaml:"seed"`
	Events    int           `yaml:"events"`
	Users     []string      `yaml:"users"`
	Database  string        `yaml:"database"`
	Start     time.Time     `yaml:"start"`
	Interval  time.Duration `yaml:"interval"`  // spacing between regular events
	BurstSize int           `yaml:"burstSize"` // statements per burst, all from one user

	Mix struct {
		Benign       float64 `yaml:"benign"`
		Injection    float64 `yaml:"injection"`
		Exfiltration float64 `yaml:"exfiltration"`
		Burst        float64 `yaml:"burst"`
		Noise        float64 `yaml:"noise"`
	} `yaml:"mix"`
}

// ReadWorkload parses a YAML workload file and applies defaults.
func ReadWorkload(path string) (Workload, error) {
	var w Workload
	data, err := os.ReadFile(path)
	if err != nil {
		return w, err
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("parse workload %s: %w", path, err)
	}
	if err := w.normalize(); err != nil {
		return w, err
	}
	return w, nil
}

// normalize fills defaults and scales the mix to sum to 1.
func (w *Workload) normalize() error {
	if w.Format == "" {
		w.Format = FormatText
	}
	if w.Format != FormatText && w.Format != FormatJSON {
		return fmt.Errorf("unknown format %q (want %s or %s)", w.Format, FormatText, FormatJSON)
	}
	if w.Events <= 0 {
		w.Events = 1000
	}
	if len(w.Users) == 0 {
		w.Users = []string{"app_user", "reporting", "authenticator"}
	}
	if w.Database == "" {
		w.Database = "postgres"
	}
	if w.Start.IsZero() {
		w.Start = time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)
	}
	if w.Interval <= 0 {
		w.Interval = 5 * time.Second
	}
	if w.BurstSize <= 0 {
		w.BurstSize = 25
	}

	m := &w.Mix
	total := m.Benign + m.Injection + m.Exfiltration + m.Burst + m.Noise
	if total <= 0 {
		m.Benign, m.Injection, m.Exfiltration, m.Burst, m.Noise = 0.7, 0.08, 0.07, 0.05, 0.1
		total = 1
	}
	m.Benign /= total
	m.Injection /= total
	m.Exfiltration /= total
	m.Burst /= total
	m.Noise /= total
	return nil
}

// pickKind draws a traffic kind from the mix with p in [0,1).
func (w *Workload) pickKind(p float64) string {
	m := w.Mix
	for _, c := range []struct {
		kind string
		p    float64
	}{
		{KindBenign, m.Benign},
		{KindInjection, m.Injection},
		{KindExfiltration, m.Exfiltration},
		{KindBurst, m.Burst},
	} {
		if p < c.p {
			return c.kind
		}
		p -= c.p
	}
	return KindNoise
}
