// Package output delivers alerts to their destinations. Every sink is
// called sequentially by the pipeline; a returned error aborts the run.
package output

import (
	"context"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// Sink consumes alerts.
type Sink interface {
	Name() string
	Send(ctx context.Context, alert domain.Alert) error
}
