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
	"github.com/buberdinner/dinner-marketplace/internal/handler"
	"github.com/buberdinner/dinner-marketplace/internal/router"
	"github.com/buberdinner/dinner-marketplace/internal/user"
	"github.com/buberdinner/dinner-marketplace/pkg/logger"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logr = logger.Named(logr, "user")
	defer logr.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logr.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	broker := bus.NewAMQP(cfg.BrokerURL, bus.DefaultRetryPolicy, logr)

	svc := user.NewService(user.NewMySQLRepository(db), broker,
		cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, logr, nil)

	e := router.New()
	router.RegisterUser(e, handler.NewUserHandler(svc))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server stopped", zap.Error(err))
		}
	}()
	logr.Info("user service listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
