package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Misikirayu/mate-finder/internal/config"
	"github.com/Misikirayu/mate-finder/internal/database"
	"github.com/Misikirayu/mate-finder/internal/handlers"
	"github.com/Misikirayu/mate-finder/internal/logging"
	"github.com/Misikirayu/mate-finder/internal/middleware"
	"github.com/Misikirayu/mate-finder/internal/routes"
	chatws "github.com/Misikirayu/mate-finder/internal/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		logger.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(ctx, cfg.DBUrl, cfg.DBMaxConns, logger); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB()

	// 3. Realtime hub, relayed through Redis when configured
	hub := chatws.NewHub(logger.Named("realtime"))
	if cfg.RedisURL != "" {
		redisClient, err := chatws.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()

		relay := chatws.NewRedisRelay(redisClient, chatws.DefaultRelayChannel, hub, logger.Named("relay"))
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("realtime relay stopped, delivering to local rooms only", zap.Error(err))
			}
		}()
	}
	go hub.Run(ctx)

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "mate-finder",
		ErrorHandler: handlers.ErrorHandler(logger),
		BodyLimit:    6 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(middleware.RequestLogger(logger.Named("http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	if err := routes.RegisterRoutes(ctx, app, routes.Dependencies{
		Config: cfg,
		DB:     database.DB,
		Hub:    hub,
		Logger: logger,
	}); err != nil {
		logger.Fatal("failed to register routes", zap.Error(err))
	}

	// 5. Start Server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		serverErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
