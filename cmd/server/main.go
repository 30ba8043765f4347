package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/L-Ayim/Vault/internal/database"
	"github.com/L-Ayim/Vault/internal/handlers"
	"github.com/L-Ayim/Vault/internal/kafka"
	"github.com/L-Ayim/Vault/internal/middleware"
	rediscache "github.com/L-Ayim/Vault/internal/redis"
	"github.com/L-Ayim/Vault/internal/router"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/internal/storage"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Info().Msg("No .env file found")
	}
	logger.Init()

	db, err := database.Connect(os.Getenv("DATABASE_DSN"))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	producer := kafka.NewProducer(strings.Split(envOr("KAFKA_BROKERS", "localhost:9092"), ","))
	defer producer.Close()

	cache := rediscache.NewService(envOr("REDIS_ADDR", "localhost:6379"), os.Getenv("REDIS_PASSWORD"), 0)

	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Region:       envOr("AWS_REGION", "us-east-1"),
		Bucket:       os.Getenv("S3_BUCKET"),
		AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		BaseEndpoint: os.Getenv("S3_ENDPOINT"),
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	accountHandler := handlers.NewAccountHandler(services.NewAccountService(db))
	groupHandler := handlers.NewGroupHandler(services.NewGroupService(db, producer))
	fileHandler := handlers.NewFileHandler(services.NewFileService(db, store, producer, cache))
	nodeHandler := handlers.NewNodeHandler(services.NewNodeService(db, producer, cache))
	chatHandler := handlers.NewChatHandler(services.NewChatService(db, store, producer))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
	middleware.SetupPrometheus(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.SetupRouter(r, db, accountHandler, groupHandler, fileHandler, nodeHandler, chatHandler)

	srv := &http.Server{
		Addr:    ":" + envOr("PORT", "8080"),
		Handler: r,
	}

	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Forced shutdown")
	}
}
