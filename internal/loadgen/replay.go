package loadgen

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// ReplayConfig describes live traffic to run against a Postgres instance
// with pgaudit enabled, so the resulting server log exercises the real
// parsers end to end.
type ReplayConfig struct {
	DSN         string        `yaml:"dsn"`
	Concurrency int           `yaml:"concurrency"`
	TotalOps    int           `yaml:"totalOps"`
	Seed        int64         `yaml:"seed"`
	Timeout     time.Duration `yaml:"timeout"` // per statement
	Workload    Workload      `yaml:"workload"`
}

// ReplayStats counts executed statements. Malicious statements usually
// fail against a real schema; those failures are counted, not fatal.
type ReplayStats struct {
	Executed int
	Errors   int
	ByKind   map[string]int
}

// Execer is the subset of *sql.DB replay needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ReadReplayConfig parses a YAML replay file and applies defaults.
func ReadReplayConfig(path string) (ReplayConfig, error) {
	var cfg ReplayConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse replay config %s: %w", path, err)
	}
	if cfg.DSN == "" {
		return cfg, fmt.Errorf("replay config %s: dsn is required", path)
	}
	return cfg, nil
}

// ReplayPostgres opens cfg.DSN with lib/pq and replays the workload.
func ReplayPostgres(ctx context.Context, cfg ReplayConfig) (ReplayStats, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return ReplayStats{}, fmt.Errorf("ping postgres: %w", err)
	}
	if cfg.Concurrency > 0 {
		db.SetMaxOpenConns(cfg.Concurrency)
	}
	return Replay(ctx, db, cfg)
}

// Replay runs cfg.TotalOps statements drawn from the workload mix across
// cfg.Concurrency workers. Statements are generated up front from the
// seed, so the set of statements is reproducible even though execution
// order across workers is not.
func Replay(ctx context.Context, db Execer, cfg ReplayConfig) (ReplayStats, error) {
	log := logger.L()
	w := cfg.Workload
	if err := w.normalize(); err != nil {
		return ReplayStats{}, err
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TotalOps <= 0 {
		cfg.TotalOps = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	faker := gofakeit.New(uint64(cfg.Seed))
	ops := make(chan statement, cfg.TotalOps)
	for i := 0; i < cfg.TotalOps; i++ {
		switch w.pickKind(faker.Float64()) {
		case KindInjection:
			ops <- injectionStatement(faker)
		case KindExfiltration:
			ops <- exfiltrationStatement(faker)
		default:
			ops <- benignStatement(faker)
		}
	}
	close(ops)

	log.Infow("starting replay", "ops", cfg.TotalOps, "concurrency", cfg.Concurrency, "seed", cfg.Seed)
	stats := ReplayStats{ByKind: make(map[string]int)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for worker := 0; worker < cfg.Concurrency; worker++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for st := range ops {
				if ctx.Err() != nil {
					return
				}
				execCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				_, err := db.ExecContext(execCtx, st.SQL)
				cancel()

				mu.Lock()
				stats.Executed++
				stats.ByKind[st.Kind]++
				if err != nil {
					stats.Errors++
				}
				mu.Unlock()
				if err != nil {
					log.Debugw("replay statement failed", "worker", id, "kind", st.Kind, "err", err.Error())
				}
			}
		}(worker)
	}
	wg.Wait()

	log.Infow("replay complete", "executed", stats.Executed, "errors", stats.Errors, "by_kind", stats.ByKind)
	return stats, ctx.Err()
}
