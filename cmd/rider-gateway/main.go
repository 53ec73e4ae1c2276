package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hangryo/baedalgo/internal/pkg/cache"
	"github.com/hangryo/baedalgo/internal/pkg/config"
	"github.com/hangryo/baedalgo/internal/pkg/credentials"
	"github.com/hangryo/baedalgo/internal/pkg/logger"
	"github.com/hangryo/baedalgo/internal/pkg/nats"
	"github.com/hangryo/baedalgo/services/gateway"
	"github.com/hangryo/baedalgo/services/realtime"
)

func main() {
	appName := "rider-gateway"
	configPath := "config/rider-gateway.env"
	configs := config.InitConfig(configPath)

	// Initialize logger
	appLogger, err := logger.NewZapLogger(logger.Config{
		Level:    configs.Logger.Level,
		FilePath: configs.Logger.FilePath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()
	logger.SetGlobalLogger(appLogger)

	// Credential supplier: persisted bearer token, read fresh per connect
	credStore := credentials.NewStore(configs.Realtime.TokenFilePath)

	// Optional Redis-backed cache invalidation
	var invalidator *cache.RedisInvalidator
	if configs.Redis.Host != "" {
		invalidator, err = cache.NewRedisInvalidator(configs.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer invalidator.Close()
	}

	// Optional NATS relay for inbound rider positions
	var natsClient *nats.Client
	if configs.NATS.URL != "" {
		natsClient, err = nats.NewClient(configs.NATS.URL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsClient.Close()
	}

	deviceID := configs.Realtime.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
		logger.Info("no device id configured, generated one",
			logger.String("device_id", deviceID))
	}

	// Notification stream client
	notificationOpts := []realtime.NotificationOption{
		realtime.WithStreamURL(configs.Realtime.StreamURL),
	}
	if invalidator != nil {
		notificationOpts = append(notificationOpts, realtime.WithInvalidator(invalidator))
	}
	notificationClient := realtime.NewNotificationStreamClient(credStore, notificationOpts...)

	// Location channel client
	locationOpts := []realtime.LocationOption{
		realtime.WithBrokerURL(configs.Realtime.BrokerURL),
	}
	if natsClient != nil {
		relay := gateway.NewLocationRelay(natsClient)
		locationOpts = append(locationOpts, realtime.WithLocationHandler(relay.Handle))
	}
	locationClient := realtime.NewLocationChannelClient(credStore, configs.Realtime.RiderID, locationOpts...)

	// Bind the clients to the process lifecycle: connect on startup,
	// tear down exactly once on shutdown
	notificationClient.Start(deviceID)
	locationClient.Connect()
	defer notificationClient.Stop()
	defer locationClient.Disconnect()

	// HTTP surface
	e := echo.New()
	e.HideBanner = true
	handler := gateway.NewHandler(notificationClient, locationClient,
		gateway.NewRedisHealthChecker(invalidator),
		gateway.NewNATSHealthChecker(natsClient),
	)
	handler.RegisterRoutes(e)

	go func() {
		logger.Info("starting rider-gateway",
			logger.String("app", appName),
			logger.Int("port", configs.Server.Port))
		if err := e.Start(fmt.Sprintf(":%d", configs.Server.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down rider-gateway")
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(configs.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", logger.Err(err))
	}
}
