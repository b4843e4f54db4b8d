package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OpportunityRadar/internal/testutil"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// mockKafkaWriter records written messages.
type mockKafkaWriter struct {
	written   []kafka.Message
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		if err := m.writeFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func newTestConfig() Config {
	cfg := Config{Brokers: []string{"localhost:9092"}}
	applyDefaults(&cfg)
	return cfg
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducerWithWriter(w, newTestConfig(), testutil.NewMockLogger())
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(newTestConfig()))

	cfg := newTestConfig()
	cfg.Brokers = nil
	assert.True(t, errors.IsCode(ValidateConfig(cfg), errors.ErrCodeValidation))

	cfg = newTestConfig()
	cfg.MaxRetries = -1
	assert.Error(t, ValidateConfig(cfg))

	cfg = newTestConfig()
	cfg.SASLMechanism = "GSSAPI"
	assert.Error(t, ValidateConfig(cfg))
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)
	assert.Equal(t, TopicRunCompleted, cfg.Topic)
	assert.Equal(t, DefaultGroupID, cfg.GroupID)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1, cfg.NumPartitions)
	assert.Equal(t, 1, cfg.ReplicationFactor)
	assert.False(t, cfg.Enabled())
}

func TestWriterSettings(t *testing.T) {
	assert.Equal(t, kafka.RequireAll, requiredAcks("all"))
	assert.Equal(t, kafka.RequireNone, requiredAcks("none"))
	assert.Equal(t, kafka.RequireOne, requiredAcks(""))
	assert.Equal(t, kafka.Zstd, compression("zstd"))
	assert.Equal(t, kafka.Compression(0), compression(""))

	mech, err := saslMechanism(Config{SASLMechanism: "PLAIN", SASLUsername: "u", SASLPassword: "p"})
	require.NoError(t, err)
	assert.Equal(t, "PLAIN", mech.Name())

	mech, err = saslMechanism(Config{})
	require.NoError(t, err)
	assert.Nil(t, mech)
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, TopicRunCompleted, p.Topic())
	assert.NoError(t, p.Close())

	_, err = NewProducer(Config{}, nil)
	assert.Error(t, err)
}

func TestSend_FillsTopicAndTime(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Send(context.Background(), kafka.Message{Key: []byte("k"), Value: []byte("v")}))
	require.Len(t, w.written, 1)
	assert.Equal(t, TopicRunCompleted, w.written[0].Topic)
	assert.False(t, w.written[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestSend_KeepsExplicitTopic(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, p.Send(context.Background(), kafka.Message{Topic: "other", Value: []byte("v"), Time: ts}))
	assert.Equal(t, "other", w.written[0].Topic)
	assert.Equal(t, ts, w.written[0].Time)
}

func TestSend_WriteError(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error { return assert.AnError }}
	p := newTestProducer(w)

	err := p.Send(context.Background(), kafka.Message{Value: []byte("v")}, kafka.Message{Value: []byte("w")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessaging))
	assert.Equal(t, int64(2), p.Failed())
	assert.Zero(t, p.Sent())
}

func TestSend_Empty(t *testing.T) {
	assert.Error(t, newTestProducer(&mockKafkaWriter{}).Send(context.Background()))
}

func TestClose_Idempotent(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	assert.Equal(t, ErrProducerClosed, p.Send(context.Background(), kafka.Message{Value: []byte("v")}))
}
