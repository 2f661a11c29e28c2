package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/bootstrap"
	"github.com/Domenick1991/hotelbooking/internal/cache"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/logger"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/rooms"
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
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, storeCheck, err := bootstrap.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	checks := map[string]bootstrap.HealthCheck{}
	if storeCheck != nil {
		checks["database"] = storeCheck
	}

	roomOpts := []rooms.RoomServiceOption{rooms.WithLogger(log)}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.RoomsCacheTTL)*time.Second)
		defer redisCache.Close()
		roomOpts = append(roomOpts, rooms.WithCache(redisCache))
		checks["redis"] = redisCache.Ping
	}

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer p.Close()
		producer = p
		checks["kafka"] = p.CheckConnection
	}

	services := bootstrap.Services{
		Rooms: rooms.NewRoomService(store, roomOpts...),
		Bookings: booking.NewBookingService(
			store,
			producer,
			cfg.Kafka.BookingEventsTopic,
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			booking.WithLogger(log),
		),
	}

	if err := bootstrap.Run(ctx, cfg, log, services, checks); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Info("server stopped")
}
