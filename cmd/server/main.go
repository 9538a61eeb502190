package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/handler"
	"github.com/ItsAltus/Worshipify/internal/middleware"
	"github.com/ItsAltus/Worshipify/internal/service"
	"github.com/ItsAltus/Worshipify/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Open the database and make sure the schema is current
	st, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	if err := st.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis client (optional — only used for rate limiting)
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
	}

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	spotifyClient := client.NewSpotifyClient(&cfg.Spotify)
	lastfmClient := client.NewLastfmClient(&cfg.Lastfm)

	// Initialize services
	searchService := service.NewSearchService(spotifyClient, lastfmClient)
	queueService := service.NewQueueService(st, spotifyClient)

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService, validate)
	queueHandler := handler.NewQueueHandler(queueService, validate)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Worshipify Backend is Running!",
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		dbOK := st.Ping(c.Context()) == nil
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"database": dbOK,
				"spotify":  spotifyClient.IsConfigured(),
				"lastfm":   lastfmClient.IsConfigured(),
				"redis":    redisClient != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api")
	api.Get("/search", rateLimiter.SearchLimit(cfg.RateLimit.SearchPerMin), searchHandler.Search)
	api.Post("/queue", queueHandler.Enqueue)
	api.Get("/queue", queueHandler.List)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
