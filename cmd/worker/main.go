package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/bootstrap"
	"github.com/Domenick1991/hotelbooking/internal/email"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/logger"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Log).WithField("process", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, _, err := bootstrap.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer p.Close()
		producer = p

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
		defer consumer.Close()

		sender := email.NewSender(log)
		go func() {
			if err := consumer.Consume(ctx, sender.Send); err != nil {
				log.WithError(err).Error("consumer stopped")
			}
		}()
	}

	bookingService := booking.NewBookingService(
		store,
		producer,
		cfg.Kafka.BookingEventsTopic,
		booking.WithLogger(log),
	)

	reconcileC, cleanupC, stopTickers := schedule(cfg, log)
	defer stopTickers()
	retention := time.Duration(cfg.Worker.CleanupCancelledAfterDays) * 24 * time.Hour

	log.Info("worker started")
	for {
		select {
		case <-reconcileC:
			if _, err := bookingService.ReconcileGroups(ctx); err != nil {
				log.WithError(err).Error("reconcile reservation groups")
			}
		case <-cleanupC:
			n, err := bookingService.CleanupCancelled(ctx, retention)
			if err != nil {
				log.WithError(err).Error("cleanup cancelled bookings")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Info("old cancelled bookings removed")
			}
		case <-ctx.Done():
			log.Info("shutting down")
			return
		}
	}
}

// schedule returns the reconcile and cleanup tick channels. With the memory
// driver the store belongs to this process alone, so both channels are nil
// and only the notification consumer runs.
func schedule(cfg *config.Config, log logrus.FieldLogger) (reconcile, cleanup <-chan time.Time, stop func()) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("memory store is private to the worker, reconcile and cleanup disabled")
		return nil, nil, func() {}
	}
	reconcileTicker := time.NewTicker(time.Duration(cfg.Worker.ReconcileMinutes) * time.Minute)
	cleanupTicker := time.NewTicker(time.Duration(cfg.Worker.CleanupMinutes) * time.Minute)
	return reconcileTicker.C, cleanupTicker.C, func() {
		reconcileTicker.Stop()
		cleanupTicker.Stop()
	}
}
