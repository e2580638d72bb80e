package analyzers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

var base = time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)

func userQuery(user string, ts time.Time) domain.Query {
	return domain.Query{
		SQL:      "SELECT 1",
		Metadata: &domain.QueryMetadata{UserID: domain.StringPtr(user), Timestamp: domain.TimePtr(ts)},
	}
}

// feed submits n queries one millisecond apart and returns the last finding.
func feed(t *testing.T, a *VolumeAnomalyAnalyzer, user string, n int, start time.Time) *domain.Finding {
	t.Helper()
	var last *domain.Finding
	for i := 0; i < n; i++ {
		f, err := a.Analyze(context.Background(), userQuery(user, start.Add(time.Duration(i)*time.Millisecond)))
		require.NoError(t, err)
		last = f
	}
	return last
}

func TestVolumeAnomaly_Thresholds(t *testing.T) {
	tests := []struct {
		n    int
		want domain.Severity // 0 means no finding
	}{
		{1, 0},
		{20, 0},
		{21, domain.SeverityLow},
		{50, domain.SeverityLow},
		{51, domain.SeverityMedium},
		{100, domain.SeverityMedium},
		{101, domain.SeverityHigh},
	}
	for _, tt := range tests {
		a := NewVolumeAnomalyAnalyzer(0)
		f := feed(t, a, "alice", tt.n, base)
		if tt.want == 0 {
			assert.Nil(t, f, "n=%d", tt.n)
			continue
		}
		require.NotNil(t, f, "n=%d", tt.n)
		assert.Equal(t, tt.want, f.Severity, "n=%d", tt.n)
		assert.Equal(t, tt.n, f.Details["query_count"])
	}
}

func TestVolumeAnomaly_NoFindingAtOrBelowTwenty(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(time.Minute)
	for i := 0; i < 20; i++ {
		f, err := a.Analyze(context.Background(), userQuery("bob", base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		assert.Nil(t, f, "call %d", i+1)
	}
}

func TestVolumeAnomaly_TwentyFirstIsLow(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(DefaultVolumeWindow)
	f := feed(t, a, "alice", 21, base)
	require.NotNil(t, f)
	assert.Equal(t, domain.SeverityLow, f.Severity)
	assert.Equal(t, NameVolumeAnomaly, f.Analyzer)
	assert.Equal(t, 21, f.Details["query_count"])
	assert.Equal(t, 60.0, f.Details["window_seconds"])
	assert.Equal(t, "alice", f.Details["user_id"])
	assert.Equal(t, "High query volume detected: 21 queries in 60.0s window", f.Message)
}

func TestVolumeAnomaly_WindowExpiry(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(time.Minute)
	feed(t, a, "alice", 20, base)
	assert.Equal(t, 20, a.Count("alice"))

	// exactly one window after the first event: the first event falls out
	f, err := a.Analyze(context.Background(), userQuery("alice", base.Add(time.Minute)))
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, 20, a.Count("alice"))

	// far in the future: everything but the new event is gone
	f, err = a.Analyze(context.Background(), userQuery("alice", base.Add(time.Hour)))
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, 1, a.Count("alice"))
}

func TestVolumeAnomaly_DistinctUsers(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(time.Minute)
	for i := 0; i < 20; i++ {
		ts := base.Add(time.Duration(i) * time.Millisecond)
		for _, u := range []string{"alice", "bob"} {
			f, err := a.Analyze(context.Background(), userQuery(u, ts))
			require.NoError(t, err)
			assert.Nil(t, f)
		}
	}
	assert.Equal(t, 2, a.Users())

	f, err := a.Analyze(context.Background(), userQuery("alice", base.Add(time.Second)))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "alice", f.Details["user_id"])
	assert.Equal(t, 20, a.Count("bob"))
}

func TestVolumeAnomaly_AnonymousBucket(t *testing.T) {
	now := base
	a := NewVolumeAnomalyAnalyzer(time.Minute).WithClock(func() time.Time { return now })

	queries := []domain.Query{
		domain.NewQuery("SELECT 1"),
		{SQL: "SELECT 1", Metadata: &domain.QueryMetadata{}},
		{SQL: "SELECT 1", Metadata: &domain.QueryMetadata{Timestamp: domain.TimePtr(base)}},
	}
	var last *domain.Finding
	for i := 0; i < 21; i++ {
		f, err := a.Analyze(context.Background(), queries[i%len(queries)])
		require.NoError(t, err)
		last = f
	}
	require.NotNil(t, last)
	assert.Equal(t, AnonymousUser, last.Details["user_id"])
	assert.Equal(t, 21, a.Count(AnonymousUser))
}

func TestVolumeAnomaly_ClockFallback(t *testing.T) {
	now := base
	a := NewVolumeAnomalyAnalyzer(time.Minute).WithClock(func() time.Time { return now })
	q := domain.Query{SQL: "SELECT 1", Metadata: &domain.QueryMetadata{UserID: domain.StringPtr("carol")}}

	for i := 0; i < 20; i++ {
		_, err := a.Analyze(context.Background(), q)
		require.NoError(t, err)
	}
	now = now.Add(2 * time.Minute)
	f, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, 1, a.Count("carol"))
}

// A backdated event is appended as is and does not evict newer ones.
func TestVolumeAnomaly_BackdatedEventNotCorrected(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(time.Minute)
	feed(t, a, "dave", 5, base)
	_, err := a.Analyze(context.Background(), userQuery("dave", base.Add(-time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 6, a.Count("dave"))
}

func TestVolumeAnomaly_Sweep(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(time.Minute)
	feed(t, a, "alice", 3, base)
	feed(t, a, "bob", 3, base.Add(90*time.Second))
	a.Sweep(base.Add(2 * time.Minute))
	assert.Equal(t, 0, a.Count("alice"))
	assert.Equal(t, 3, a.Count("bob"))
	assert.Equal(t, 1, a.Users())
}

func TestVolumeAnomaly_ConcurrentUse(t *testing.T) {
	a := NewVolumeAnomalyAnalyzer(time.Hour)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = a.Analyze(context.Background(), userQuery("shared", base))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, a.Count("shared"))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "60.0", formatSeconds(60))
	assert.Equal(t, "0.5", formatSeconds(0.5))
	assert.Equal(t, "300.0", formatSeconds(300))
}
