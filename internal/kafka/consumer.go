package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ResourceEventHandler reacts to a raw resource-change payload.
type ResourceEventHandler func(action string, payload []byte) error

// Consumer reads one topic and fans messages out to handlers by
// action. Handler errors are logged and the message is still
// committed: notifications are best-effort, a poisoned payload must
// not wedge the partition.
type Consumer struct {
	reader   *kafka.Reader
	handlers map[string][]ResourceEventHandler
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:   reader,
		handlers: make(map[string][]ResourceEventHandler),
	}
}

// RegisterHandler adds a handler for an action. "*" matches every
// action.
func (c *Consumer) RegisterHandler(action string, handler ResourceEventHandler) {
	c.handlers[action] = append(c.handlers[action], handler)
}

type envelope struct {
	Action    string `json:"action"`
	EventType string `json:"eventType"`
}

// Run consumes until the context is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var env envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			logger.Log.Warn().Err(err).Str("topic", msg.Topic).Msg("Skipping undecodable message")
			continue
		}
		action := env.Action
		if action == "" {
			action = env.EventType
		}

		for _, handler := range append(c.handlers[action], c.handlers["*"]...) {
			if err := handler(action, msg.Value); err != nil {
				logger.Log.Error().Err(err).Str("action", action).Msg("Event handler failed")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
