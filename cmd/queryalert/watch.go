package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/input"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/supabase"
)

var (
	watchFlagProject string
	watchFlagPoll    time.Duration
	watchFlagOnce    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll Supabase postgres logs and alert on audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if watchFlagProject != "" {
			cfg.Supabase.ProjectRef = watchFlagProject
		}
		if watchFlagPoll > 0 {
			cfg.Supabase.PollInterval = watchFlagPoll
		}
		if cfg.Supabase.ProjectRef == "" {
			return errors.New("supabase.project_ref is required (or --project)")
		}
		if cfg.Supabase.AccessToken == "" {
			return fmt.Errorf("supabase.access_token is required (or %s_SUPABASE_ACCESS_TOKEN)", config.EnvPrefix)
		}

		client := supabase.NewLogClient(cfg.Supabase.ProjectRef, supabaseOptions(cfg))
		src := input.NewSupabaseSource(client, cfg.Supabase.Lookback)

		ctx, stop := commandContext()
		defer stop()
		serveMetrics(ctx, cfg.Metrics.Addr)
		return watch(ctx, cfg, src)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchFlagProject, "project", "", "Supabase project ref (default supabase.project_ref)")
	watchCmd.Flags().DurationVar(&watchFlagPoll, "poll", 0, "poll interval (default supabase.poll_interval)")
	watchCmd.Flags().BoolVar(&watchFlagOnce, "once", false, "fetch and analyze a single window, then exit")
}

func supabaseOptions(cfg *config.Config) supabase.Options {
	return supabase.Options{
		AccessToken:  cfg.Supabase.AccessToken,
		BaseURL:      cfg.Supabase.BaseURL,
		Timeout:      cfg.Supabase.Timeout,
		RateLimitRPS: cfg.Supabase.RateLimitRPS,
	}
}

// watch runs the pipeline over one fetched window per poll. Sinks and the
// volume analyzer live for the whole loop so bursts spanning two polls
// are still counted together.
func watch(ctx context.Context, cfg *config.Config, src *input.SupabaseSource) error {
	log := logger.L()
	w, err := wire(ctx, cfg, src)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Warnw("failed to close sinks", "err", err.Error())
		}
	}()

	poll := cfg.Supabase.PollInterval
	if poll <= 0 {
		poll = time.Minute
	}
	log.Infow("watching supabase logs", "project", cfg.Supabase.ProjectRef, "poll", poll)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for refresh := false; ; refresh = true {
		if err := watchWindow(ctx, w, src, refresh); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if watchFlagOnce {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// watchWindow analyzes one window. The first window is fetched lazily by
// the source; later ones are refreshed here. A refresh that failed on the
// network is retried on the next tick, and the missed span is covered
// then. Every other refresh error ends the watch.
func watchWindow(ctx context.Context, w *wiring, src *input.SupabaseSource, refresh bool) error {
	log := logger.L()
	if refresh {
		if err := src.Refresh(ctx); err != nil {
			if ctx.Err() != nil || !transientFetchError(err) {
				return fmt.Errorf("refresh supabase logs: %w", err)
			}
			log.Warnw("refresh failed, retrying next poll", "err", err.Error())
			return nil
		}
	}
	summary, err := w.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	log.Infow("window analyzed", "queries", summary.Queries, "alerts", summary.Alerts, "skipped", src.Skipped())
	w.sweepVolume()
	return nil
}

// transientFetchError reports whether err is a network failure with no
// API error category. Authentication, not-found, exhausted rate limits
// and any other API response are fatal.
func transientFetchError(err error) bool {
	var rl *supabase.RateLimitError
	var apiErr *supabase.APIError
	if errors.Is(err, supabase.ErrAuthentication) || errors.Is(err, supabase.ErrNotFound) ||
		errors.Is(err, supabase.ErrInvalidParams) || errors.As(err, &rl) || errors.As(err, &apiErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
