package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/iAmLakshya/supabase-query-alert/internal/loadgen"
	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}
	if err := logger.InitLogger(logger.LogConfig{Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch os.Args[1] {
	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		configPath := genCmd.String("config", "", "Path to workload file")
		output := genCmd.String("output", "", "Output file (overrides workload)")
		genCmd.Parse(os.Args[2:])
		if *configPath == "" {
			fmt.Println("Error: --config is required for 'generate'")
			genCmd.Usage()
			os.Exit(1)
		}
		w, err := loadgen.ReadWorkload(*configPath)
		if err != nil {
			fail(err)
		}
		if *output != "" {
			w.Output = *output
		}
		var stats loadgen.Stats
		if w.Output == "" {
			stats, err = loadgen.Generate(w, os.Stdout)
		} else {
			stats, err = loadgen.GenerateFile(w)
		}
		if err != nil {
			fail(err)
		}
		fmt.Fprintf(os.Stderr, "generated %d records (%d audit)\n", stats.Records, stats.Audit)

	case "replay":
		replayCmd := flag.NewFlagSet("replay", flag.ExitOnError)
		configPath := replayCmd.String("config", "", "Path to replay config file")
		replayCmd.Parse(os.Args[2:])
		if *configPath == "" {
			fmt.Println("Error: --config is required for 'replay'")
			replayCmd.Usage()
			os.Exit(1)
		}
		cfg, err := loadgen.ReadReplayConfig(*configPath)
		if err != nil {
			fail(err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		stats, err := loadgen.ReplayPostgres(ctx, cfg)
		if err != nil {
			fail(err)
		}
		fmt.Fprintf(os.Stderr, "executed %d statements (%d errors)\n", stats.Executed, stats.Errors)

	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.Sync()
	os.Exit(1)
}

func printHelp() {
	fmt.Println(`Usage: loadgen <subcommand> --config <path>`)
	fmt.Println()
	fmt.Println("Subcommands:")
	fmt.Println("  generate --config <path> [--output <file>]   Write a synthetic pgaudit log")
	fmt.Println("  replay   --config <path>                     Run workload statements against Postgres")
	fmt.Println("  help                                         Show this help message")
}
