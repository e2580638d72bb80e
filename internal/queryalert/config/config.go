package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LoggingCfg struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	RunLog      string `mapstructure:"run_log"`
}

type InputCfg struct {
	Mode     string `mapstructure:"mode"`      // logfile | supabase | manual
	FilePath string `mapstructure:"file_path"` // logfile mode
	Format   string `mapstructure:"format"`    // text | json
}

type SupabaseCfg struct {
	ProjectRef   string        `mapstructure:"project_ref"`
	AccessToken  string        `mapstructure:"access_token"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Lookback     time.Duration `mapstructure:"lookback"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RateLimitRPS float64       `mapstructure:"rate_limit_rps"`
}

type AnalyzersCfg struct {
	Enabled      []string      `mapstructure:"enabled"`
	VolumeWindow time.Duration `mapstructure:"volume_window"`
}

type ConsoleCfg struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type SQSCfg struct {
	QueueURL        string `mapstructure:"queue_url"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

type NATSCfg struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type SQLCfg struct {
	Driver string `mapstructure:"driver"` // postgres | mysql
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

type FileCfg struct {
	Path      string `mapstructure:"path"`
	StateFile string `mapstructure:"state_file"`
}

type BreakerCfg struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type OutputsCfg struct {
	Console ConsoleCfg `mapstructure:"console"`
	SQS     SQSCfg     `mapstructure:"sqs"`
	NATS    NATSCfg    `mapstructure:"nats"`
	SQL     SQLCfg     `mapstructure:"sql"`
	File    FileCfg    `mapstructure:"file"`
	Breaker BreakerCfg `mapstructure:"breaker"`
}

type OutputCfg struct {
	RejectFile string `mapstructure:"reject_file"`
}

type MetricsCfg struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Version   string       `mapstructure:"version"`
	Input     InputCfg     `mapstructure:"input"`
	Supabase  SupabaseCfg  `mapstructure:"supabase"`
	Analyzers AnalyzersCfg `mapstructure:"analyzers"`
	Outputs   OutputsCfg   `mapstructure:"outputs"`
	Output    OutputCfg    `mapstructure:"output"`
	Metrics   MetricsCfg   `mapstructure:"metrics"`
	Logging   LoggingCfg   `mapstructure:"logging"`
}

var cfg *Config

// EnvPrefix namespaces environment overrides, e.g. QUERYALERT_SUPABASE_ACCESS_TOKEN.
const EnvPrefix = "QUERYALERT"

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// set defaults
	v.SetDefault("version", "0.1")
	v.SetDefault("input.mode", "logfile")
	v.SetDefault("input.format", "text")
	// empty defaults register the keys so env overrides reach Unmarshal
	v.SetDefault("supabase.project_ref", "")
	v.SetDefault("supabase.access_token", "")
	v.SetDefault("outputs.sqs.access_key_id", "")
	v.SetDefault("outputs.sqs.secret_access_key", "")
	v.SetDefault("outputs.sqs.session_token", "")
	v.SetDefault("supabase.base_url", "https://api.supabase.com")
	v.SetDefault("supabase.timeout", "30s")
	v.SetDefault("supabase.lookback", "5m")
	v.SetDefault("supabase.poll_interval", "1m")
	v.SetDefault("supabase.rate_limit_rps", 1.0)
	v.SetDefault("analyzers.enabled", []string{"sql_injection", "data_exfiltration", "volume_anomaly"})
	v.SetDefault("analyzers.volume_window", "60s")
	v.SetDefault("outputs.console.enabled", true)
	v.SetDefault("outputs.console.prefix", "[ALERT]")
	v.SetDefault("outputs.sqs.region", "us-east-1")
	v.SetDefault("outputs.nats.subject", "queryalert.alerts")
	v.SetDefault("outputs.sql.driver", "postgres")
	v.SetDefault("outputs.sql.table", "query_alerts")
	v.SetDefault("outputs.breaker.failure_threshold", 5)
	v.SetDefault("outputs.breaker.timeout", "30s")
	v.SetDefault("logging.level", "info")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = &c
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Input.Mode {
	case "logfile", "supabase", "manual":
	default:
		return fmt.Errorf("invalid input.mode %q (want logfile|supabase|manual)", c.Input.Mode)
	}
	switch c.Input.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid input.format %q (want text|json)", c.Input.Format)
	}
	switch c.Outputs.SQL.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("invalid outputs.sql.driver %q (want postgres|mysql)", c.Outputs.SQL.Driver)
	}
	if c.Analyzers.VolumeWindow <= 0 {
		return fmt.Errorf("analyzers.volume_window must be positive")
	}
	return nil
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
