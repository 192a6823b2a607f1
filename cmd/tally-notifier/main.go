// Command tally-notifier tails the change event queue and logs every
// entity change, one consumer per deployment. It is the integration point
// for anything that wants to react to mutations (cache busting on other
// nodes, push notifications) without touching the API server.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/config"
	"tally/internal/events"
	"tally/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentNotifier})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Consuming change events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = client.ConsumeEntityChanged(ctx, func(msg *events.EntityChangedMessage) error {
		logger.Info("Entity changed",
			log.FieldEntity, msg.Entity,
			log.FieldEntityID, msg.ID,
			"action", msg.Action,
			log.FieldUserID, msg.UserID,
			"timestamp", msg.Timestamp)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Notifier stopped gracefully")
}
