package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/circuitbreaker"
	"github.com/hmctech/ordering/internal/events"
	"github.com/hmctech/ordering/internal/notify"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	kafkaBrokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	mailerURL := getEnv("MAILER_URL", "http://localhost:8083")

	cfg := notify.Config{
		SourceEmail: getEnv("SOURCE_EMAIL", ""),
		AdminEmail:  getEnv("ADMIN_EMAIL", ""),
		WebsiteURL:  getEnv("WEBSITE_URL", ""),
	}
	if cfg.SourceEmail == "" {
		logger.WithField("missing", "SOURCE_EMAIL").Warn("Customer notifications will be skipped")
	}
	if cfg.AdminEmail == "" {
		logger.WithField("missing", "ADMIN_EMAIL").Warn("Admin notifications disabled")
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "mailer",
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 2,
	}, logger)

	mailer := notify.WithBreaker(notify.NewClient(mailerURL, logger), breaker)
	notifier := notify.NewNotifier(cfg, mailer, logger)

	var consumer *events.KafkaConsumer
	var err error

	// The broker may come up after us.
	for i := 0; i < 10; i++ {
		consumer, err = events.NewKafkaConsumer(kafkaBrokers, "order-notifier-group", notifier, logger)
		if err == nil {
			logger.Info("Successfully connected to Kafka")
			break
		}
		logger.WithError(err).Info("Waiting for Kafka...")
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Consumer stopped")
		}
	}()

	logger.WithField("topic", events.OrderChangesTopic).Info("Order change notifier started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down notifier...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
