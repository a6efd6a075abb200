package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/config"
	"github.com/buberdinner/dinner-marketplace/internal/database"
	"github.com/buberdinner/dinner-marketplace/internal/dinner"
	"github.com/buberdinner/dinner-marketplace/internal/handler"
	"github.com/buberdinner/dinner-marketplace/internal/router"
	"github.com/buberdinner/dinner-marketplace/pkg/logger"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logr = logger.Named(logr, "dinner")
	defer logr.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logr.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logr.Warn("redis unavailable, cache and rate limiting disabled")
	}

	broker := bus.NewAMQP(cfg.BrokerURL, bus.DefaultRetryPolicy, logr)

	identityClient := dinner.NewHTTPIdentityClient(getenv("USER_SERVICE_URL", "http://localhost:8084"))
	guestClient := dinner.NewHTTPGuestListClient(getenv("RESERVATION_SERVICE_URL", "http://localhost:8082"))

	repo := dinner.NewMySQLRepository(db)
	svc := dinner.NewService(repo, broker,
		identityClient, dinner.StubMenuClient{}, guestClient, logr, nil)
	reviews := dinner.NewReviewService(dinner.NewMySQLReviewRepository(db), repo, logr, nil)

	e := router.New()
	router.RegisterDinner(e, handler.NewDinnerHandler(svc, reviews), rdb, cfg.JWTSecret)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server stopped", zap.Error(err))
		}
	}()
	logr.Info("dinner service listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
