package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/config"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

var (
	cfgFile         string
	flagMetricsAddr string
	Version         = "v0.1"
	build           = "dev"
	rootCmd         = &cobra.Command{
		Use:          "queryalert",
		Short:        "queryalert - SQL query alerting for pgaudit logs",
		Long:         "queryalert: parse pgaudit logs, detect SQL injection, data exfiltration and volume anomalies, and deliver alerts.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// load config
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			} else {
				// default: ./config.yaml
				viper.SetConfigFile("config.yaml")
			}
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not read config (%v). Using defaults and flags.\n", err)
			}
			if err := config.Load(viper.GetViper()); err != nil {
				return err
			}

			// init logger
			cfg := config.Get()
			if err := logger.InitLogger(logger.LogConfig{
				Level:       cfg.Logging.Level,
				Development: cfg.Logging.Development,
				File:        cfg.Logging.File,
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if flagMetricsAddr != "" {
				cfg.Metrics.Addr = flagMetricsAddr
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address (e.g. :9090)")
	// without a subcommand, input.mode picks the source
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return modeCommand(config.Get().Input.Mode).RunE(cmd, args)
	}
	// add subcommands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(versionCmd)
}

// modeCommand maps an input.mode value to the command reading that source.
func modeCommand(mode string) *cobra.Command {
	switch mode {
	case "supabase":
		return watchCmd
	case "manual":
		return analyzeCmd
	default:
		return scanCmd
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serveMetrics exposes /metrics until ctx is done. It is a no-op when no
// address is configured.
func serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	log := logger.L()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infow("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "addr", addr, "err", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
