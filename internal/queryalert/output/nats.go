package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// DefaultNATSSubject is used when no subject is configured.
const DefaultNATSSubject = "queryalert.alerts"

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ConnectNATS dials a NATS server with reconnects enabled.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("queryalert"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSSink publishes each alert's JSON to a subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

func NewNATSSink(pub Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

func (n *NATSSink) Name() string { return "nats" }

// Send publishes asynchronously; Publish itself does not block on the
// server, so ctx is only checked up front.
func (n *NATSSink) Send(ctx context.Context, alert domain.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}
