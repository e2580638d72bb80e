package output

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// Set is the ordered list of configured sinks plus the resources they
// hold open.
type Set struct {
	Sinks   []Sink
	closers []func() error
}

// Close releases every resource in reverse order of acquisition.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build constructs sinks from configuration in a fixed order: console,
// file, sql, sqs, nats. Network sinks are wrapped in a circuit breaker.
// On error every sink built so far is closed.
func Build(ctx context.Context, cfg config.OutputsCfg, stdout io.Writer) (*Set, error) {
	log := logger.L()
	set := &Set{}
	fail := func(err error) (*Set, error) {
		_ = set.Close()
		return nil, err
	}
	breaker := BreakerConfig{FailureThreshold: cfg.Breaker.FailureThreshold, Timeout: cfg.Breaker.Timeout}

	if cfg.Console.Enabled {
		set.Sinks = append(set.Sinks, NewConsoleSink(stdout, cfg.Console.Prefix))
	}

	if cfg.File.Path != "" {
		fs, err := NewFileSink(cfg.File.Path, cfg.File.StateFile)
		if err != nil {
			return fail(err)
		}
		set.Sinks = append(set.Sinks, fs)
		set.closers = append(set.closers, fs.Close)
	}

	if cfg.SQL.DSN != "" {
		db, err := OpenDB(ctx, cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return fail(err)
		}
		set.closers = append(set.closers, db.Close)
		ss, err := NewSQLSink(db, cfg.SQL.Driver, cfg.SQL.Table)
		if err != nil {
			return fail(err)
		}
		if err := ss.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		set.Sinks = append(set.Sinks, NewBreakerSink(ss, breaker))
	}

	if cfg.SQS.QueueURL != "" {
		client := NewSQSClient(SQSConfig{
			QueueURL:        cfg.SQS.QueueURL,
			Region:          cfg.SQS.Region,
			Endpoint:        cfg.SQS.Endpoint,
			AccessKeyID:     cfg.SQS.AccessKeyID,
			SecretAccessKey: cfg.SQS.SecretAccessKey,
			SessionToken:    cfg.SQS.SessionToken,
		})
		ss, err := NewSQSSink(client, cfg.SQS.QueueURL)
		if err != nil {
			return fail(err)
		}
		set.Sinks = append(set.Sinks, NewBreakerSink(ss, breaker))
	}

	if cfg.NATS.URL != "" {
		nc, err := ConnectNATS(cfg.NATS.URL)
		if err != nil {
			return fail(err)
		}
		set.closers = append(set.closers, func() error {
			if err := nc.Drain(); err != nil {
				nc.Close()
				return fmt.Errorf("drain nats: %w", err)
			}
			return nil
		})
		set.Sinks = append(set.Sinks, NewBreakerSink(NewNATSSink(nc, cfg.NATS.Subject), breaker))
	}

	names := make([]string, 0, len(set.Sinks))
	for _, s := range set.Sinks {
		names = append(names, s.Name())
	}
	log.Infow("sinks configured", "sinks", names)
	return set, nil
}
