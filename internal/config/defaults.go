package config

import (
	"time"

	"github.com/turtacn/OpportunityRadar/internal/application/painpoint"
)

// Default value constants.
const (
	DefaultInputLocation     = "data"
	DefaultOutputDestination = "data/opportunities.csv"

	DefaultMetricsNamespace = "radar"

	DefaultServerAddr            = ":8080"
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultLimit                 = 20
	DefaultMaxLimit              = 500

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// defaultValues seeds viper so every key is known to AutomaticEnv even
// without a config file.  Keys without a sensible default are bound in
// bindEnvKeys.
func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"pipeline.top_k":                painpoint.DefaultTopK,
		"pipeline.vocabulary_size":      painpoint.DefaultVocabularySize,
		"pipeline.low_rating_threshold": painpoint.DefaultLowRatingThreshold,
		"input.location":                DefaultInputLocation,
		"output.destination":            DefaultOutputDestination,
		"metrics.namespace":             DefaultMetricsNamespace,
		"server.addr":                   DefaultServerAddr,
		"server.mode":                   DefaultServerMode,
		"server.snapshot_source":        SnapshotSourceFile,
		"log.level":                     DefaultLogLevel,
		"log.format":                    DefaultLogFormat,
	}
}

// envKeys are the optional keys that may be supplied only through RADAR_*
// variables.
var envKeys = []string{
	"pipeline.timeout",
	"minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.use_ssl", "minio.region",
	"postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.dbname",
	"postgres.ssl_mode", "postgres.auto_migrate",
	"redis.addr", "redis.password", "redis.db", "redis.key_prefix",
	"kafka.brokers", "kafka.topic", "kafka.group_id", "kafka.sasl_username", "kafka.sasl_password",
	"metrics.push_url", "metrics.push_instance",
	"server.reload_interval",
}

// ApplyDefaults fills every zero-value field in cfg.  Explicit values are
// left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Pipeline
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = painpoint.DefaultTopK
	}
	if cfg.Pipeline.VocabularySize == 0 {
		cfg.Pipeline.VocabularySize = painpoint.DefaultVocabularySize
	}
	if cfg.Pipeline.LowRatingThreshold == 0 {
		cfg.Pipeline.LowRatingThreshold = painpoint.DefaultLowRatingThreshold
	}

	// Locations
	if cfg.Input.Location == "" {
		cfg.Input.Location = DefaultInputLocation
	}
	if cfg.Output.Destination == "" {
		cfg.Output.Destination = DefaultOutputDestination
	}

	// Metrics
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// Server
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.SnapshotSource == "" {
		cfg.Server.SnapshotSource = SnapshotSourceFile
	}
	if cfg.Server.MaxLimit == 0 {
		cfg.Server.MaxLimit = DefaultMaxLimit
	}
	if cfg.Server.DefaultLimit == 0 {
		cfg.Server.DefaultLimit = DefaultLimit
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}
}
