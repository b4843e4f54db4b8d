package cli

import (
	"context"

	composer "github.com/turtacn/OpportunityRadar/internal/application/opportunity"
	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
	"github.com/turtacn/OpportunityRadar/internal/config"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/postgres"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/database/redis"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage/minio"
)

// components owns the infrastructure clients opened for one command and
// closes them in reverse order.
type components struct {
	cfg     *config.Config
	logger  logging.Logger
	closers []func()

	objects  *minio.Client
	pgPool   *postgres.Pool
	redis    *redis.Client
	producer *kafka.Producer
}

func newComponents(cfg *config.Config, logger logging.Logger) *components {
	return &components{cfg: cfg, logger: logger}
}

func (c *components) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// Close releases everything opened so far.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// ObjectStore connects to MinIO when configured; nil otherwise.
func (c *components) ObjectStore() (*minio.Client, error) {
	if c.objects != nil || !c.cfg.MinIOEnabled() {
		return c.objects, nil
	}
	client, err := minio.NewClient(c.cfg.MinIO, c.logger)
	if err != nil {
		return nil, err
	}
	c.objects = client
	return client, nil
}

// Postgres opens the pool and applies migrations when auto_migrate is set.
func (c *components) Postgres(ctx context.Context) (*postgres.Pool, error) {
	if c.pgPool != nil {
		return c.pgPool, nil
	}
	if c.cfg.Postgres.AutoMigrate {
		if err := postgres.NewMigrator(c.cfg.Postgres, c.logger).Up(); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, c.cfg.Postgres, c.logger)
	if err != nil {
		return nil, err
	}
	c.pgPool = pool
	c.onClose(pool.Close)
	return pool, nil
}

// Redis connects the configured Redis deployment.
func (c *components) Redis() (*redis.Client, error) {
	if c.redis != nil {
		return c.redis, nil
	}
	client, err := redis.NewClient(&c.cfg.Redis, c.logger)
	if err != nil {
		return nil, err
	}
	c.redis = client
	c.onClose(func() {
		if err := client.Close(); err != nil {
			c.logger.Warn("redis close failed", logging.Err(err))
		}
	})
	return client, nil
}

// Producer creates the run-event producer, creating topics first when
// kafka.create_topics is set.
func (c *components) Producer(ctx context.Context) (*kafka.Producer, error) {
	if c.producer != nil {
		return c.producer, nil
	}
	if c.cfg.Kafka.CreateTopics {
		tm, err := kafka.NewTopicManager(ctx, c.cfg.Kafka, c.logger)
		if err != nil {
			return nil, err
		}
		err = tm.EnsureTopics()
		_ = tm.Close()
		if err != nil {
			return nil, err
		}
	}
	producer, err := kafka.NewProducer(c.cfg.Kafka, c.logger)
	if err != nil {
		return nil, err
	}
	c.producer = producer
	c.onClose(func() {
		if err := producer.Close(); err != nil {
			c.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	})
	return producer, nil
}

// Publishers returns one publisher per configured downstream system.
func (c *components) Publishers(ctx context.Context) ([]pipeline.Publisher, error) {
	var pubs []pipeline.Publisher
	if c.cfg.Postgres.Enabled() {
		pool, err := c.Postgres(ctx)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, postgres.NewPublisher(pool, c.logger))
	}
	if c.cfg.Redis.Enabled() {
		client, err := c.Redis()
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, redis.NewSnapshotPublisher(client))
	}
	if c.cfg.Kafka.Enabled() {
		producer, err := c.Producer(ctx)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, kafka.NewRunEventPublisher(producer))
	}
	return pubs, nil
}

// Metrics builds the registry and the radar instruments.
func (c *components) Metrics() (prometheus.MetricsCollector, *prometheus.RadarMetrics, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            c.cfg.Metrics.Namespace,
		EnableProcessMetrics: c.cfg.Metrics.EnableRuntime,
		EnableGoMetrics:      c.cfg.Metrics.EnableRuntime,
	}, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewRadarMetrics(collector), nil
}

// pipelineOptions converts the pipeline section.
func pipelineOptions(cfg config.PipelineConfig) pipeline.Options {
	var rules []composer.KeywordRule
	for _, r := range cfg.KeywordRules {
		rules = append(rules, composer.KeywordRule{Keyword: r.Keyword, Category: r.Category})
	}
	return pipeline.Options{
		TopK:               cfg.TopK,
		VocabularySize:     cfg.VocabularySize,
		LowRatingThreshold: cfg.LowRatingThreshold,
		KeywordRules:       rules,
	}
}
