package output

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// BreakerConfig tunes a BreakerSink.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures that open the breaker
	Timeout          time.Duration // open period before a half-open probe
}

// BreakerSink guards a network sink with a circuit breaker. While the
// breaker is open Send fails fast with gobreaker.ErrOpenState instead of
// waiting on a dead endpoint. Nothing is retried.
type BreakerSink struct {
	next Sink
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerSink(next Sink, cfg BreakerConfig) *BreakerSink {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warnw("sink breaker state change", "sink", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerSink{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *BreakerSink) Name() string { return b.next.Name() }

func (b *BreakerSink) Send(ctx context.Context, alert domain.Alert) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Send(ctx, alert)
	})
	return err
}

// State reports the breaker state for diagnostics.
func (b *BreakerSink) State() string { return b.cb.State().String() }
