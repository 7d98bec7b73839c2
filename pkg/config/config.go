// Package config loads and validates run configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (inputs, pipeline, output, external sinks, logging, metrics).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level run configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Filter   FilterConfig   `yaml:"filter"`
	Output   OutputConfig   `yaml:"output"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InputConfig names the dump, its index and the vocabulary index. Empty
// paths are discovered in SearchDir.
type InputConfig struct {
	Dump       string `yaml:"dump"`
	Index      string `yaml:"index"`
	Vocabulary string `yaml:"vocabulary"`
	SearchDir  string `yaml:"searchDir"`
}

// PipelineConfig controls the worker pool and the block reader guard.
type PipelineConfig struct {
	Workers          int           `yaml:"workers"`
	QueueDepth       int           `yaml:"queueDepth"`
	MaxGroupSize     int           `yaml:"maxGroupSize"`
	MaxBlocks        int           `yaml:"maxBlocks"`
	ProgressInterval time.Duration `yaml:"progressInterval"`
}

// FilterConfig restricts which pages contribute words.
type FilterConfig struct {
	Namespaces    []int `yaml:"namespaces"`
	SkipRedirects bool  `yaml:"skipRedirects"`
}

// OutputConfig controls the frequency list file.
type OutputConfig struct {
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

// SinksConfig bounds every external sink operation.
type SinksConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
}

// PostgresConfig holds PostgreSQL connection parameters and the target table.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters and the sorted-set key.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	Key       string        `yaml:"key"`
	BatchSize int           `yaml:"batchSize"`
	TTL       time.Duration `yaml:"ttl"`
}

// KafkaConfig holds the broker list and the topic run summaries go to.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			SearchDir: ".",
		},
		Pipeline: PipelineConfig{
			MaxGroupSize:     100,
			ProgressInterval: 10 * time.Second,
		},
		Output: OutputConfig{
			Path:        "frequency_list.txt",
			Compression: "auto",
		},
		Sinks: SinksConfig{
			Timeout:      2 * time.Minute,
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wikifreq",
			User:            "wikifreq",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "word_frequencies",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  4,
			Key:       "wikifreq:frequencies",
			BatchSize: 5000,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "wikifreq-runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate rejects settings the run cannot honour.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueDepth < 0 {
		return fmt.Errorf("pipeline.queueDepth must be >= 0, got %d", c.Pipeline.QueueDepth)
	}
	if c.Pipeline.MaxGroupSize < 1 {
		return fmt.Errorf("pipeline.maxGroupSize must be >= 1, got %d", c.Pipeline.MaxGroupSize)
	}
	if c.Pipeline.MaxBlocks < 0 {
		return fmt.Errorf("pipeline.maxBlocks must be >= 0, got %d", c.Pipeline.MaxBlocks)
	}
	for _, ns := range c.Filter.Namespaces {
		if ns < 0 {
			return fmt.Errorf("filter.namespaces must not contain negative namespace %d", ns)
		}
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	switch c.Output.Compression {
	case "", "auto", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("output.compression %q is not one of auto, none, gzip, zstd", c.Output.Compression)
	}
	if c.Postgres.Enabled && !isIdentifier(c.Postgres.Table) {
		return fmt.Errorf("postgres.table %q is not a plain identifier", c.Postgres.Table)
	}
	if c.Redis.Enabled && c.Redis.Key == "" {
		return fmt.Errorf("redis.key must not be empty")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka requires brokers and a topic")
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// applyEnvOverrides reads WF_* environment variables and overrides the
// corresponding config fields. Numeric values that do not parse are
// reported together.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	if v := os.Getenv("WF_DUMP"); v != "" {
		cfg.Input.Dump = v
	}
	if v := os.Getenv("WF_INDEX"); v != "" {
		cfg.Input.Index = v
	}
	if v := os.Getenv("WF_VOCABULARY"); v != "" {
		cfg.Input.Vocabulary = v
	}
	if v := os.Getenv("WF_SEARCH_DIR"); v != "" {
		cfg.Input.SearchDir = v
	}
	errs = append(errs, envInt("WF_WORKERS", &cfg.Pipeline.Workers))
	if v := os.Getenv("WF_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("WF_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v)
	}
	if v := os.Getenv("WF_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	errs = append(errs, envInt("WF_POSTGRES_PORT", &cfg.Postgres.Port))
	if v := os.Getenv("WF_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WF_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WF_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WF_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("WF_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WF_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WF_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v)
	}
	if v := os.Getenv("WF_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WF_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WF_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WF_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	errs = append(errs, envInt("WF_METRICS_PORT", &cfg.Metrics.Port))
	return errors.Join(errs...)
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s=%q is not an integer", name, v)
	}
	*dst = n
	return nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
