package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"souq/server/internal/chat"
	"souq/server/internal/config"
	"souq/server/internal/database"
	"souq/server/internal/email"
	"souq/server/internal/handlers"
	"souq/server/internal/identity"
	"souq/server/internal/logger"
	"souq/server/internal/middleware"
	"souq/server/internal/notification"
	"souq/server/internal/repository"
	"souq/server/internal/routes"
	"souq/server/internal/storage"
	ws "souq/server/internal/websocket"
	"souq/server/internal/whatsapp"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "souq-realtime"})
	log := logger.L()
	if envErr != nil {
		log.Debug().Msg("no .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	files, err := storage.New(ctx, storage.Config{
		Driver:    cfg.StorageDriver,
		LocalPath: cfg.UploadDir,
		S3:        storage.S3Config(cfg.S3),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	chatHub := ws.NewHub("chat")
	notificationHub := ws.NewHub("notifications")
	if cfg.RedisAddr != "" {
		bridge, err := ws.NewRedisBridge(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer bridge.Close()
		chatHub.WithBridge(bridge)
		notificationHub.WithBridge(bridge)
		log.Info().Str("addr", cfg.RedisAddr).Msg("hubs bridged through redis")
	}
	go chatHub.Run(ctx)
	go notificationHub.Run(ctx)

	norm := identity.NewNormalizer(cfg.CountryCode)
	users := repository.NewUserRepository(pool)

	chatService := chat.NewService(repository.NewMessageRepository(pool), chatHub, files, users, norm, cfg.MaxUploadSize)

	opts := notification.Options{
		Store:     repository.NewNotificationRepository(pool),
		Users:     users,
		Hub:       notificationHub,
		Normalize: norm,
		Delay:     cfg.DispatchDelay,
	}
	if cfg.SMTP.Host != "" {
		opts.Mailer = email.NewSender(email.Config(cfg.SMTP))
	} else {
		log.Warn().Msg("SMTP_HOST not set, email delivery disabled")
	}
	if cfg.WhatsApp.BaseURL != "" {
		opts.Messenger = whatsapp.NewClient(whatsapp.Config(cfg.WhatsApp), nil)
	} else {
		log.Warn().Msg("WA_URL not set, WhatsApp delivery disabled")
	}
	notificationService := notification.NewService(opts)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "Souq Realtime API v1.0",
		BodyLimit: int(cfg.MaxUploadSize) + 1<<20,
	})

	// Middleware
	app.Use(logger.FiberMiddleware(*log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.ReplaceAll(cfg.AllowedOrigins, " ", ""),
		AllowCredentials: true,
	}))

	// Setup routes
	routes.SetupRoutes(app, routes.Handlers{
		Auth: middleware.AuthConfig{
			Secret:     cfg.JWTSecret,
			Normalizer: norm,
			AdminPhone: cfg.AdminPhone,
		},
		Chat:          handlers.NewChatHandler(chatService, files),
		Notifications: handlers.NewNotificationHandler(notificationService),
		WebSocket:     handlers.NewWebSocketHandler(ctx, chatHub, notificationHub, chatService.HandleEvent),
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
