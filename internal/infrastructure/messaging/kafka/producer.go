package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// ErrProducerClosed is returned by Send after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeMessaging, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages to Kafka.
type Producer struct {
	writer WriterInterface
	config Config
	logger logging.Logger
	closed atomic.Bool

	sent   atomic.Int64
	failed atomic.Int64
}

// NewProducer builds a hash-balanced writer for cfg.Brokers.
func NewProducer(cfg Config, logger logging.Logger) (*Producer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	mech, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            cfg.MaxRetries + 1,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           requiredAcks(cfg.Acks),
		Compression:            compression(cfg.Compression),
		AllowAutoTopicCreation: cfg.CreateTopics,
		Transport: &kafka.Transport{
			DialTimeout: 10 * time.Second,
			SASL:        mech,
			TLS:         tlsCfg,
		},
	}
	return newProducerWithWriter(writer, cfg, logger), nil
}

func newProducerWithWriter(w WriterInterface, cfg Config, logger logging.Logger) *Producer {
	return &Producer{writer: w, config: cfg, logger: logger}
}

// Send writes msgs synchronously.  Messages without a Topic go to the
// configured topic.
func (p *Producer) Send(ctx context.Context, msgs ...kafka.Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(msgs) == 0 {
		return errors.NewValidation("no messages to send")
	}
	for i := range msgs {
		if msgs[i].Topic == "" {
			msgs[i].Topic = p.config.Topic
		}
		if msgs[i].Time.IsZero() {
			msgs[i].Time = time.Now()
		}
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.failed.Add(int64(len(msgs)))
		return errors.Wrap(err, errors.ErrCodeMessaging, "publish failed")
	}
	p.sent.Add(int64(len(msgs)))
	p.logger.Debug("Messages published",
		logging.String("topic", msgs[0].Topic),
		logging.Int("count", len(msgs)),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Sent and Failed count messages since construction.
func (p *Producer) Sent() int64   { return p.sent.Load() }
func (p *Producer) Failed() int64 { return p.failed.Load() }

// Topic returns the default topic.
func (p *Producer) Topic() string { return p.config.Topic }

// Close flushes and closes the writer.  Later calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}
