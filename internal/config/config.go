// Package config defines the configuration structures of OpportunityRadar.
// Infrastructure sections reuse the mapstructure-tagged Config types of their
// packages so a YAML file maps one-to-one onto constructor arguments.
package config

import (
	"strings"
	"time"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/postgres"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/redis"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage/minio"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// Snapshot sources of the read API.
const (
	SnapshotSourceFile     = "file"
	SnapshotSourceRedis    = "redis"
	SnapshotSourcePostgres = "postgres"
)

// KeywordRuleConfig maps a query substring to a category.
type KeywordRuleConfig struct {
	Keyword  string `mapstructure:"keyword"`
	Category string `mapstructure:"category"`
}

// PipelineConfig tunes the analyzers.
type PipelineConfig struct {
	TopK               int                 `mapstructure:"top_k"`
	VocabularySize     int                 `mapstructure:"vocabulary_size"`
	LowRatingThreshold int                 `mapstructure:"low_rating_threshold"`
	KeywordRules       []KeywordRuleConfig `mapstructure:"keyword_rules"`
	Timeout            time.Duration       `mapstructure:"timeout"`
}

// InputConfig locates the five input tables.
type InputConfig struct {
	Location string `mapstructure:"location"`
}

// OutputConfig locates the opportunity artifact.
type OutputConfig struct {
	Destination string `mapstructure:"destination"`
}

// MetricsConfig configures the Prometheus registry and Pushgateway.
type MetricsConfig struct {
	Namespace     string `mapstructure:"namespace"`
	EnableRuntime bool   `mapstructure:"enable_runtime"`
	PushURL       string `mapstructure:"push_url"`
	PushJob       string `mapstructure:"push_job"`
	PushInstance  string `mapstructure:"push_instance"`
}

// ServerConfig holds read API tunables.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SnapshotSource  string        `mapstructure:"snapshot_source"`
	// ReloadInterval polls non-file snapshot sources; zero disables polling.
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// Config is the root configuration structure.
type Config struct {
	Pipeline PipelineConfig  `mapstructure:"pipeline"`
	Input    InputConfig     `mapstructure:"input"`
	Output   OutputConfig    `mapstructure:"output"`
	MinIO    minio.Config    `mapstructure:"minio"`
	Postgres postgres.Config `mapstructure:"postgres"`
	Redis    redis.Config    `mapstructure:"redis"`
	Kafka    kafka.Config    `mapstructure:"kafka"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
}

// MinIOEnabled reports whether an object store is configured.
func (c *Config) MinIOEnabled() bool { return c.MinIO.Endpoint != "" }

// LoggerConfig converts the log section for logging.NewLogger.
func (c *Config) LoggerConfig() logging.LogConfig {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.LogConfig{
		Level:       level,
		Format:      c.Log.Format,
		OutputPaths: c.Log.OutputPaths,
	}
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeValidation, "config: "+format, args...)
}

// Validate performs semantic validation of a defaulted Config.
func (c *Config) Validate() error {
	// Pipeline
	if c.Pipeline.TopK < 1 {
		return invalid("pipeline.top_k must be >= 1, got %d", c.Pipeline.TopK)
	}
	if c.Pipeline.VocabularySize < 1 {
		return invalid("pipeline.vocabulary_size must be >= 1, got %d", c.Pipeline.VocabularySize)
	}
	if c.Pipeline.LowRatingThreshold < 1 || c.Pipeline.LowRatingThreshold > 5 {
		return invalid("pipeline.low_rating_threshold %d is out of range [1, 5]", c.Pipeline.LowRatingThreshold)
	}
	for i, r := range c.Pipeline.KeywordRules {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Category) == "" {
			return invalid("pipeline.keyword_rules[%d] needs both keyword and category", i)
		}
	}
	if c.Pipeline.Timeout < 0 {
		return invalid("pipeline.timeout must not be negative")
	}

	// Locations
	in, err := storage.ParseLocation(c.Input.Location)
	if err != nil {
		return invalid("input.location: %v", err)
	}
	out, err := storage.ParseLocation(c.Output.Destination)
	if err != nil {
		return invalid("output.destination: %v", err)
	}
	if (in.IsRemote() || out.IsRemote()) && !c.MinIOEnabled() {
		return invalid("s3 locations require minio.endpoint")
	}
	if out.IsRemote() && out.Path == "" {
		return invalid("output.destination %q lacks an object key", c.Output.Destination)
	}

	// Publishers
	if c.Kafka.Enabled() {
		if err := kafka.ValidateConfig(c.Kafka); err != nil {
			return invalid("kafka: %v", err)
		}
	}
	if c.Redis.DB < 0 {
		return invalid("redis.db must be >= 0, got %d", c.Redis.DB)
	}
	if c.Postgres.Enabled() && (c.Postgres.User == "" || c.Postgres.DBName == "") {
		return invalid("postgres.user and postgres.dbname are required when postgres.host is set")
	}

	// Metrics
	if c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required")
	}

	// Server
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	switch c.Server.SnapshotSource {
	case SnapshotSourceFile:
	case SnapshotSourceRedis:
		if !c.Redis.Enabled() {
			return invalid("server.snapshot_source redis requires redis.addr")
		}
	case SnapshotSourcePostgres:
		if !c.Postgres.Enabled() {
			return invalid("server.snapshot_source postgres requires postgres.host")
		}
	default:
		return invalid("server.snapshot_source %q is invalid; expected file|redis|postgres", c.Server.SnapshotSource)
	}
	if c.Server.DefaultLimit < 1 || c.Server.DefaultLimit > c.Server.MaxLimit {
		return invalid("server.default_limit %d must be within [1, server.max_limit=%d]", c.Server.DefaultLimit, c.Server.MaxLimit)
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
