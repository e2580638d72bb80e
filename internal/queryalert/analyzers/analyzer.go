// Package analyzers holds the query detectors and the registry that fans a
// query out to them.
package analyzers

import (
	"context"
	"fmt"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// Analyzer names.
const (
	NameSQLInjection     = "sql_injection"
	NameDataExfiltration = "data_exfiltration"
	NameVolumeAnomaly    = "volume_anomaly"
)

// Analyzer inspects one query and returns at most one finding.
// A nil finding with a nil error means nothing was detected.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, q domain.Query) (*domain.Finding, error)
}

// Options configures analyzers built by name.
type Options struct {
	VolumeWindow time.Duration
	Now          func() time.Time
}

// New builds an analyzer by name.
func New(name string, opts Options) (Analyzer, error) {
	switch name {
	case NameSQLInjection:
		return NewSQLInjectionAnalyzer(), nil
	case NameDataExfiltration:
		return NewDataExfiltrationAnalyzer(), nil
	case NameVolumeAnomaly:
		v := NewVolumeAnomalyAnalyzer(opts.VolumeWindow)
		if opts.Now != nil {
			v.now = opts.Now
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown analyzer: %s", name)
	}
}

// NewRegistryFromNames registers analyzers in the order given.
func NewRegistryFromNames(names []string, opts Options) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		a, err := New(name, opts)
		if err != nil {
			return nil, err
		}
		r.Register(a)
	}
	return r, nil
}
