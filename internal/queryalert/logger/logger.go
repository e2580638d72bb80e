package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// LogConfig controls the global logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string
	// Development switches to the human-readable console encoder.
	Development bool
	// File, when set, receives logs in addition to stderr.
	File string
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger initializes the global sugared logger.
func InitLogger(c LogConfig) error {
	cfg := zap.NewProductionConfig()
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(c.Level))
	cfg.OutputPaths = []string{"stderr"}
	if c.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, c.File)
	}

	z, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	logger = z.Sugar()
	mu.Unlock()
	return nil
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes at info level.
func L() *zap.SugaredLogger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l != nil {
		return l
	}
	if err := InitLogger(LogConfig{Level: "info"}); err != nil {
		return zap.NewNop().Sugar()
	}
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Sync flushes buffered log entries.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
