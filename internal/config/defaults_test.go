package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 8, cfg.Pipeline.TopK)
	assert.Equal(t, 100, cfg.Pipeline.VocabularySize)
	assert.Equal(t, 3, cfg.Pipeline.LowRatingThreshold)
	assert.Nil(t, cfg.Pipeline.KeywordRules)
	assert.Equal(t, DefaultInputLocation, cfg.Input.Location)
	assert.Equal(t, DefaultOutputDestination, cfg.Output.Destination)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, SnapshotSourceFile, cfg.Server.SnapshotSource)
	assert.Equal(t, DefaultLimit, cfg.Server.DefaultLimit)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.MinIOEnabled())
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.TopK = 3
	cfg.Output.Destination = "out/table.csv"
	cfg.Server.Mode = "debug"
	ApplyDefaults(cfg)

	assert.Equal(t, 3, cfg.Pipeline.TopK)
	assert.Equal(t, "out/table.csv", cfg.Output.Destination)
	assert.Equal(t, "debug", cfg.Server.Mode)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
