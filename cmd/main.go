package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snackbox/backend/internal/alerts"
	"snackbox/backend/internal/api/handler"
	"snackbox/backend/internal/config"
	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/logger"
	"snackbox/backend/internal/matching"
	"snackbox/backend/internal/snackhub"
	"snackbox/backend/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: no .env file loaded")
	}
	cfg := config.Load()

	if err := logger.Init(cfg); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zap.L().Sync()

	db, rdb := setupDependencies(cfg)
	s := storage.NewService(db, rdb)
	if err := s.Migrate(); err != nil {
		zap.L().Fatal("migrations failed", zap.Error(err))
	}
	zap.L().Info("database and redis ready, migrations complete")

	lc := lifecycle.NewService(s)
	finder := matching.NewFinder(s, lc)
	hub := snackhub.NewHub(s, lc)
	go hub.Run()

	notifier, err := alerts.NewNotifier(cfg.TelegramBotToken, cfg.TelegramAdminChatID)
	if err != nil {
		zap.L().Fatal("failed to start telegram alerts", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := lifecycle.NewSweeper(lc, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := sweeper.Start(ctx); err != nil {
		zap.L().Fatal("failed to start expiry sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	if cfg.Mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	h := handler.NewHandler(s, lc, finder, hub, notifier, cfg.JWTSecret)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zap.L().Info("http server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("http shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
