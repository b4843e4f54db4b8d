package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

const (
	// TopicRunCompleted carries one event per successful pipeline run.
	TopicRunCompleted = "opportunity.run.completed"

	EventTypeRunCompleted = "opportunity.run.completed"
	EventSource           = "opportunity-radar"
	SchemaVersion         = "1.0"

	// PublisherName identifies the Kafka publisher in run results.
	PublisherName = "kafka"

	headerEventType = "event_type"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// RunCompletedPayload summarizes a finished run.
type RunCompletedPayload struct {
	RunID       string    `json:"run_id"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
	Destination string    `json:"destination"`
	Categories  int       `json:"categories"`
	TopCategory string    `json:"top_category,omitempty"`
	TopScore    float64   `json:"top_score"`
}

// NewEventEnvelope wraps payload with a fresh event ID.
func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        EventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ToMessage encodes the envelope keyed by key.
func (e *EventEnvelope) ToMessage(topic string, key string) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Time:    e.Timestamp,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(e.EventType)}},
	}, nil
}

// ParseEnvelope decodes a message written by ToMessage.
func ParseEnvelope(msg kafka.Message) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode envelope")
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeSerialization, "envelope lacks event_type")
	}
	return &env, nil
}

// NewRunCompletedPayload summarizes result.
func NewRunCompletedPayload(result *pipeline.RunResult) RunCompletedPayload {
	p := RunCompletedPayload{
		RunID:       result.RunID,
		FinishedAt:  result.FinishedAt,
		DurationMs:  result.Duration().Milliseconds(),
		Destination: result.Destination,
		Categories:  len(result.Opportunities),
		TopCategory: result.TopCategory(),
	}
	if len(result.Opportunities) > 0 {
		p.TopScore = result.Opportunities[0].OpportunityScore
	}
	return p
}

// RunEventPublisher emits a run-completed event per run.
type RunEventPublisher struct {
	producer *Producer
}

// NewRunEventPublisher returns a publisher writing through producer.
func NewRunEventPublisher(producer *Producer) *RunEventPublisher {
	return &RunEventPublisher{producer: producer}
}

// Name implements pipeline.Publisher.
func (p *RunEventPublisher) Name() string { return PublisherName }

// Publish implements pipeline.Publisher.
func (p *RunEventPublisher) Publish(ctx context.Context, result *pipeline.RunResult) error {
	if result == nil {
		return errors.NewValidation("nil run result")
	}
	env, err := NewEventEnvelope(EventTypeRunCompleted, NewRunCompletedPayload(result))
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(p.producer.Topic(), result.RunID)
	if err != nil {
		return err
	}
	if err := p.producer.Send(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodePublishFailed, "kafka publish failed")
	}
	return nil
}
