package analyzers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// AnonymousUser is the bucket for queries without a user id.
const AnonymousUser = "__anonymous__"

// DefaultVolumeWindow is the sliding window used when none is configured.
const DefaultVolumeWindow = 60 * time.Second

// Volume thresholds; a count strictly above the threshold triggers.
const (
	VolumeThresholdLow    = 20
	VolumeThresholdMedium = 50
	VolumeThresholdHigh   = 100
)

// VolumeAnomalyAnalyzer counts queries per user inside a sliding window
// and reports users whose count crosses a threshold.
//
// Pruning uses the current event's timestamp only. A backdated event is
// appended as is and can leave the per-user list out of chronological
// order; it is neither rejected nor re-evaluated.
type VolumeAnomalyAnalyzer struct {
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	events map[string][]time.Time
}

// NewVolumeAnomalyAnalyzer creates a detector with the given window;
// a non-positive window selects DefaultVolumeWindow.
func NewVolumeAnomalyAnalyzer(window time.Duration) *VolumeAnomalyAnalyzer {
	if window <= 0 {
		window = DefaultVolumeWindow
	}
	return &VolumeAnomalyAnalyzer{
		window: window,
		now:    time.Now,
		events: make(map[string][]time.Time),
	}
}

// WithClock replaces the clock used for queries without a timestamp.
func (a *VolumeAnomalyAnalyzer) WithClock(now func() time.Time) *VolumeAnomalyAnalyzer {
	a.now = now
	return a
}

func (a *VolumeAnomalyAnalyzer) Name() string { return NameVolumeAnomaly }

// Window returns the configured window.
func (a *VolumeAnomalyAnalyzer) Window() time.Duration { return a.window }

func (a *VolumeAnomalyAnalyzer) Analyze(_ context.Context, q domain.Query) (*domain.Finding, error) {
	user, ok := q.UserID()
	if !ok {
		user = AnonymousUser
	}
	ts, ok := q.Timestamp()
	if !ok {
		ts = a.now()
	}

	a.mu.Lock()
	a.pruneLocked(user, ts)
	a.events[user] = append(a.events[user], ts)
	count := len(a.events[user])
	a.mu.Unlock()

	var sev domain.Severity
	switch {
	case count > VolumeThresholdHigh:
		sev = domain.SeverityHigh
	case count > VolumeThresholdMedium:
		sev = domain.SeverityMedium
	case count > VolumeThresholdLow:
		sev = domain.SeverityLow
	default:
		return nil, nil
	}

	seconds := a.window.Seconds()
	return &domain.Finding{
		Analyzer: NameVolumeAnomaly,
		Severity: sev,
		Message:  fmt.Sprintf("High query volume detected: %d queries in %ss window", count, formatSeconds(seconds)),
		Details: map[string]any{
			"query_count":    count,
			"window_seconds": seconds,
			"user_id":        user,
		},
	}, nil
}

// pruneLocked drops timestamps of one user that are not strictly newer
// than ts minus the window, and deletes the user once empty.
func (a *VolumeAnomalyAnalyzer) pruneLocked(user string, ts time.Time) {
	list, ok := a.events[user]
	if !ok {
		return
	}
	cutoff := ts.Add(-a.window)
	kept := list[:0]
	for _, t := range list {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(a.events, user)
		return
	}
	a.events[user] = kept
}

// Sweep prunes every user against now. Long-running processes call it
// periodically so idle users do not hold memory.
func (a *VolumeAnomalyAnalyzer) Sweep(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for user := range a.events {
		a.pruneLocked(user, now)
	}
}

// Count returns the number of tracked timestamps for a user.
func (a *VolumeAnomalyAnalyzer) Count(user string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events[user])
}

// Users returns the number of tracked users.
func (a *VolumeAnomalyAnalyzer) Users() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// formatSeconds renders whole seconds with one decimal ("60.0").
func formatSeconds(s float64) string {
	if s == float64(int64(s)) {
		return strconv.FormatFloat(s, 'f', 1, 64)
	}
	return strconv.FormatFloat(s, 'f', -1, 64)
}
