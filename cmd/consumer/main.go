package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/kafka"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// The consumer is the notification fan-out worker: it tails both topics
// and logs every change. Push delivery (websockets, webhooks) hangs off
// the same handlers.
func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Info().Msg("No .env file found")
	}
	logger.Init()

	brokers := strings.Split(envOr("KAFKA_BROKERS", "localhost:9092"), ",")

	resourceConsumer := kafka.NewConsumer(brokers, events.ResourceChangesTopic, "vault-notifier")
	resourceConsumer.RegisterHandler("*", func(action string, payload []byte) error {
		var event events.ResourceEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		logger.Log.Info().
			Str("action", event.Action).
			Str("kind", string(event.ResourceKind)).
			Str("resource_id", event.ResourceID).
			Str("actor_id", event.ActorID).
			Msg("Resource changed")
		return nil
	})

	groupConsumer := kafka.NewConsumer(brokers, events.GroupActivityTopic, "vault-notifier")
	groupConsumer.RegisterHandler("*", func(action string, payload []byte) error {
		var event events.GroupEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		logger.Log.Info().
			Str("event_type", event.EventType).
			Str("group_id", event.GroupID).
			Str("performed_by", event.PerformedBy).
			Msg("Group activity")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := resourceConsumer.Run(ctx); err != nil {
			logger.Log.Error().Err(err).Msg("Resource consumer stopped")
		}
	}()
	go func() {
		if err := groupConsumer.Run(ctx); err != nil {
			logger.Log.Error().Err(err).Msg("Group consumer stopped")
		}
	}()

	logger.Log.Info().Msg("Consumer started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info().Msg("Shutting down consumer")
	cancel()
	resourceConsumer.Close()
	groupConsumer.Close()
}
