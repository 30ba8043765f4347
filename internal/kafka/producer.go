package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Producer implements events.Publisher on top of Kafka, one writer per
// topic.
type Producer struct {
	resourceWriter *kafka.Writer
	groupWriter    *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	resourceWriter := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        events.ResourceChangesTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	groupWriter := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        events.GroupActivityTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{
		resourceWriter: resourceWriter,
		groupWriter:    groupWriter,
	}
}

// PublishResourceEvent publishes a resource change, keyed by resource
// id so changes to one resource stay ordered.
func (p *Producer) PublishResourceEvent(ctx context.Context, event *events.ResourceEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: value,
		Time:  event.Timestamp,
	}

	if err := p.resourceWriter.WriteMessages(ctx, message); err != nil {
		return err
	}

	logger.Log.Debug().
		Str("action", event.Action).
		Str("kind", string(event.ResourceKind)).
		Str("resource_id", event.ResourceID).
		Msg("Published resource event")
	return nil
}

// PublishGroupEvent publishes group activity, keyed by group id.
func (p *Producer) PublishGroupEvent(ctx context.Context, event *events.GroupEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.GroupID),
		Value: value,
		Time:  event.Timestamp,
	}

	if err := p.groupWriter.WriteMessages(ctx, message); err != nil {
		return err
	}

	logger.Log.Debug().
		Str("event_type", event.EventType).
		Str("group_id", event.GroupID).
		Msg("Published group event")
	return nil
}

// Close closes both writers.
func (p *Producer) Close() error {
	var err1, err2 error
	if p.resourceWriter != nil {
		err1 = p.resourceWriter.Close()
	}
	if p.groupWriter != nil {
		err2 = p.groupWriter.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}
