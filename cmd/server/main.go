package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"factory-tracker/internal/config"
	"factory-tracker/internal/events"
	"factory-tracker/internal/handlers"
	"factory-tracker/internal/ingest"
	"factory-tracker/internal/logger"
	"factory-tracker/internal/middleware"
	"factory-tracker/internal/mirror"
	"factory-tracker/internal/services"
	"factory-tracker/internal/session"
	"factory-tracker/internal/tracker"
	"factory-tracker/internal/websocket"
	"factory-tracker/pkg/background"
	"factory-tracker/pkg/mqtt"
	"factory-tracker/pkg/retrier"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		_ = logger.Init("development")
		logger.Fatal("❌ invalid configuration", zap.Error(err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("🚀 factory tracker starting",
		zap.String("environment", cfg.Server.Environment),
		zap.String("factory", cfg.Factory.Name),
		zap.Float64("factory_lat", cfg.Factory.Latitude),
		zap.Float64("factory_lng", cfg.Factory.Longitude),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event fan-out
	broadcaster := events.NewBroadcaster(cfg.Tracker.EventQueueSize, logger.Named("broadcaster"))
	defer broadcaster.Close()

	registry := tracker.NewRegistry(cfg.Factory,
		tracker.WithPublisher(broadcaster),
		tracker.WithLogger(logger.Named("registry")),
	)

	if cfg.Tracker.SeedDemoDrivers {
		tracker.SeedDemoDrivers(registry)
	}

	// Status reconciler
	reconciler := tracker.NewReconciler(registry,
		cfg.Tracker.ReconcileInterval,
		cfg.Tracker.StaleAfter,
		cfg.Tracker.FreshWithin,
		logger.Named("reconciler"),
	)
	if _, err := background.New(ctx, logger.Named("background"), []background.Task{reconciler}); err != nil {
		logger.Fatal("❌ failed to start background tasks", zap.Error(err))
	}
	logger.Info("✅ reconciler scheduled", zap.Duration("interval", reconciler.TTL()))

	// WebSocket hub
	hub := websocket.NewHub(broadcaster, registry, logger.Named("websocket"))
	go hub.Run(ctx)
	if _, err := broadcaster.Subscribe(events.AdminChannel, hub); err != nil {
		logger.Fatal("❌ failed to subscribe websocket hub", zap.Error(err))
	}
	logger.Info("✅ WebSocket hub started")

	// Push notifications
	devices := services.NewTokenStore()
	startFCM(ctx, cfg.Firebase, broadcaster, devices)

	// Optional brokers
	if cfg.AMQP.URL != "" {
		m, err := mirror.Dial(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, retrier.New(retrier.DefaultConfig()), logger.Named("amqp"))
		if err != nil {
			logger.Warn("⚠️ event mirror disabled", zap.Error(err))
		} else {
			defer m.Close()
			if _, err := broadcaster.Subscribe(events.AdminChannel, m); err != nil {
				logger.Warn("⚠️ event mirror not subscribed", zap.Error(err))
			} else {
				logger.Info("✅ mirroring events to RabbitMQ", zap.String("exchange", cfg.AMQP.Exchange))
			}
		}
	}

	if cfg.MQTT.Broker != "" {
		mqttCfg := mqtt.DefaultConfig(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		mqttCfg.Username = cfg.MQTT.Username
		mqttCfg.Password = cfg.MQTT.Password

		client := mqtt.NewClient(mqttCfg, logger.Named("mqtt"))
		if err := client.Connect(); err != nil {
			logger.Warn("⚠️ device ingest disabled", zap.Error(err))
		} else {
			defer client.Disconnect()
			if err := ingest.NewMQTTIngest(registry, logger.Named("mqtt-ingest")).Start(client); err != nil {
				logger.Warn("⚠️ device ingest not subscribed", zap.Error(err))
			} else {
				logger.Info("✅ listening for device pings", zap.String("topic", ingest.LocationTopic))
			}
		}
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Run(ctx)
		logger.Info("🚦 driver rate limit enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	router := handlers.NewRouter(handlers.Deps{
		Registry: registry,
		Sessions: session.NewManager(cfg.Session.Secret, cfg.Session.TTL),
		Devices:  devices,
		Hub:      hub,
		Started:  time.Now(),
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🔌 ready to accept requests", zap.String("addr", "http://localhost:"+cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ server failed to start", zap.String("port", cfg.Server.Port), zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ graceful shutdown failed", zap.Error(err))
	}
}

// startFCM subscribes the push notifier when Firebase credentials are configured.
// Base64 credentials win over a file path.
func startFCM(ctx context.Context, cfg config.FirebaseConfig, broadcaster *events.Broadcaster, devices *services.TokenStore) {
	if !cfg.Enabled() {
		logger.Info("ℹ️ Firebase credentials not set, push notifications disabled")
		return
	}

	var (
		fcm *services.FCMService
		err error
	)
	if cfg.CredentialsBase64 != "" {
		fcm, err = services.NewFCMServiceFromBase64(ctx, cfg.CredentialsBase64, devices, logger.Named("fcm"))
	} else {
		fcm, err = services.NewFCMService(ctx, cfg.CredentialsFile, devices, logger.Named("fcm"))
	}
	if err != nil {
		logger.Warn("⚠️ failed to initialize FCM, push notifications disabled", zap.Error(err))
		return
	}

	if _, err := broadcaster.Subscribe(events.AdminChannel, fcm); err != nil {
		logger.Warn("⚠️ FCM notifier not subscribed", zap.Error(err))
		return
	}
	logger.Info("✅ Firebase Cloud Messaging initialized")
}
