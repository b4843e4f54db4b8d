package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OpportunityRadar/internal/testutil"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

const validConfigYAML = `
pipeline:
  top_k: 5
  keyword_rules:
    - keyword: watch
      category: Wearables
    - keyword: drone
      category: Gadgets
input:
  location: ./testdata
output:
  destination: ./out/opportunities.csv
postgres:
  host: localhost
  user: radar
  dbname: radar
  conn_max_lifetime: 30m
redis:
  addr: localhost:6379
  snapshot_ttl: 48h
kafka:
  brokers: ["localhost:9092"]
metrics:
  push_url: http://pushgateway:9091
server:
  addr: ":9090"
  snapshot_source: redis
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.TopK)
	assert.Equal(t, 100, cfg.Pipeline.VocabularySize)
	require.Len(t, cfg.Pipeline.KeywordRules, 2)
	assert.Equal(t, KeywordRuleConfig{Keyword: "drone", Category: "Gadgets"}, cfg.Pipeline.KeywordRules[1])
	assert.Equal(t, "./testdata", cfg.Input.Location)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.ConnMaxLifetime)
	assert.Equal(t, 48*time.Hour, cfg.Redis.SnapshotTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushURL)
	assert.Equal(t, SnapshotSourceRedis, cfg.Server.SnapshotSource)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "pipeline: ["))
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "pipeline:\n  low_rating_threshold: 9\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.low_rating_threshold")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("RADAR_PIPELINE_TOP_K", "12")
	t.Setenv("RADAR_REDIS_ADDR", "cache:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Pipeline.TopK)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RADAR_OUTPUT_DESTINATION", "results/table.csv")
	t.Setenv("RADAR_POSTGRES_HOST", "db")
	t.Setenv("RADAR_POSTGRES_USER", "radar")
	t.Setenv("RADAR_POSTGRES_DBNAME", "radar")
	t.Setenv("RADAR_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "results/table.csv", cfg.Output.Destination)
	assert.Equal(t, DefaultInputLocation, cfg.Input.Location)
	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, "pipeline:\n  top_k: 4\n")
	logger := testutil.NewMockLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logger, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  low_rating_threshold: 42\n"), 0o644))
	time.Sleep(2 * watchDebounce)
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  top_k: 9\n"), 0o644))

	select {
	case cfg := <-changes:
		assert.Equal(t, 9, cfg.Pipeline.TopK)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
	assert.True(t, logger.HasMessage("warn", "ignoring invalid config revision"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "config.yaml"), nil, func(*Config) {})
	assert.Error(t, err)
}
