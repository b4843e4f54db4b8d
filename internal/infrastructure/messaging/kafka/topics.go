package kafka

import (
	"context"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// ConnInterface abstracts the controller connection used for topic admin.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	Close() error
}

// TopicManager creates the radar's topics on the controller broker.
type TopicManager struct {
	conn   ConnInterface
	config Config
	logger logging.Logger
}

// NewTopicManager dials the cluster controller.
func NewTopicManager(ctx context.Context, cfg Config, logger logging.Logger) (*TopicManager, error) {
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
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessaging, "failed to dial kafka")
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessaging, "failed to find kafka controller")
	}
	ctrl, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessaging, "failed to dial kafka controller")
	}
	return newTopicManagerWithConn(ctrl, cfg, logger), nil
}

func newTopicManagerWithConn(conn ConnInterface, cfg Config, logger logging.Logger) *TopicManager {
	return &TopicManager{conn: conn, config: cfg, logger: logger}
}

// TopicConfigs lists the topics the radar writes to.
func (m *TopicManager) TopicConfigs() []kafka.TopicConfig {
	return []kafka.TopicConfig{{
		Topic:             m.config.Topic,
		NumPartitions:     m.config.NumPartitions,
		ReplicationFactor: m.config.ReplicationFactor,
		ConfigEntries: []kafka.ConfigEntry{
			{ConfigName: "retention.ms", ConfigValue: strconv.Itoa(7 * 24 * 3600 * 1000)},
		},
	}}
}

// EnsureTopics creates missing topics; existing topics are left untouched.
func (m *TopicManager) EnsureTopics() error {
	topics := m.TopicConfigs()
	if err := m.conn.CreateTopics(topics...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return errors.Wrap(err, errors.ErrCodeMessaging, "failed to create topics")
	}
	for _, t := range topics {
		m.logger.Info("Topic ensured", logging.String("topic", t.Topic))
	}
	return nil
}

// Close closes the controller connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}
