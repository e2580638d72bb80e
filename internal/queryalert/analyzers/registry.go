package analyzers

import (
	"context"
	"fmt"
	"sync"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// Registry keeps analyzers in registration order.
type Registry struct {
	mu        sync.RWMutex
	analyzers []Analyzer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an analyzer. Registering the same analyzer twice runs it twice.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers = append(r.analyzers, a)
}

// Analyzers returns a snapshot of the registered analyzers.
func (r *Registry) Analyzers() []Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Analyzer, len(r.analyzers))
	copy(out, r.analyzers)
	return out
}

// AnalyzeAll runs every analyzer in order and collects the non-nil
// findings in that same order. An analyzer error stops the fan-out.
func (r *Registry) AnalyzeAll(ctx context.Context, q domain.Query) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, a := range r.Analyzers() {
		f, err := a.Analyze(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("analyzer %s: %w", a.Name(), err)
		}
		if f == nil {
			continue
		}
		logger.L().Debugw("finding",
			"analyzer", f.Analyzer,
			"severity", f.Severity.String(),
			"message", f.Message,
		)
		findings = append(findings, *f)
	}
	return findings, nil
}
