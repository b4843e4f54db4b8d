package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// ErrAlreadyRunning is returned when Run is called twice concurrently.
var ErrAlreadyRunning = errors.New(errors.ErrCodeMessaging, "consumer already running")

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EnvelopeHandler processes one decoded event.
type EnvelopeHandler func(ctx context.Context, env *EventEnvelope) error

// Consumer reads run events in a consumer group.
//
// Messages are committed after the handler returns, whether or not it
// succeeded; a failing handler is logged and the message is skipped.
type Consumer struct {
	reader       ReaderInterface
	config       Config
	logger       logging.Logger
	running      atomic.Bool
	fetchBackoff time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer joins cfg.GroupID on cfg.Topic.
func NewConsumer(cfg Config, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		Dialer:      dialer,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})
	return newConsumerWithReader(reader, cfg, logger), nil
}

func newConsumerWithReader(r ReaderInterface, cfg Config, logger logging.Logger) *Consumer {
	return &Consumer{reader: r, config: cfg, logger: logger, fetchBackoff: time.Second}
}

// Run consumes until ctx is cancelled, then returns nil.
func (c *Consumer) Run(ctx context.Context, handler EnvelopeHandler) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.String("topic", c.config.Topic))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.fetchBackoff):
			}
			continue
		}

		c.handle(ctx, m, handler)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("CommitMessages failed", logging.Err(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message, handler EnvelopeHandler) {
	env, err := ParseEnvelope(m)
	if err != nil {
		c.failed.Add(1)
		c.logger.Warn("Dropping undecodable message",
			logging.String("topic", m.Topic),
			logging.Int64("offset", m.Offset),
			logging.Err(err))
		return
	}
	if err := handler(ctx, env); err != nil {
		c.failed.Add(1)
		c.logger.Error("Event handler failed",
			logging.String("event_id", env.EventID),
			logging.Err(err))
		return
	}
	c.processed.Add(1)
}

// Processed and Failed count handled messages.
func (c *Consumer) Processed() int64 { return c.processed.Load() }
func (c *Consumer) Failed() int64    { return c.failed.Load() }

// Close leaves the group and closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
