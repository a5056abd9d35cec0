package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/orderflow-console/internal/config"
	"github.com/joao-fontenele/orderflow-console/internal/domain"
	"github.com/joao-fontenele/orderflow-console/internal/messaging"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	groupID := flag.String("group", "console-activity-log", "kafka consumer group")
	fromStart := flag.Bool("from-start", false, "read the topic from the earliest offset")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if !cfg.ActivityEnabled() {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	var opts []messaging.ConsumerOption
	if *fromStart {
		opts = append(opts, messaging.WithStartOffset(kafka.FirstOffset))
	}

	consumer := messaging.NewActivityConsumer(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic, *groupID, logger, opts...)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("tailing console activity", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.ActivityTopic)

	err = consumer.Consume(ctx, func(ctx context.Context, event domain.ActivityEvent) error {
		logger.InfoContext(ctx, "console activity",
			"session_id", event.SessionID,
			"operation", event.Operation,
			"outcome", event.Outcome,
			"status_code", event.StatusCode,
			"token", event.Token,
			"timestamp", event.Timestamp,
		)
		return nil
	})
	if err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
