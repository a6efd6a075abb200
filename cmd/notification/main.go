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
	"github.com/buberdinner/dinner-marketplace/internal/identity"
	"github.com/buberdinner/dinner-marketplace/internal/notification"
	"github.com/buberdinner/dinner-marketplace/internal/router"
	"github.com/buberdinner/dinner-marketplace/pkg/logger"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logr = logger.Named(logr, "notification")
	defer logr.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logr.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	var dedup notification.Dedup
	if rdb != nil {
		dedup = notification.NewRedisDedup(rdb, 0)
	} else {
		logr.Warn("redis unavailable, falling back to in-process dedup")
		dedup = notification.NewMemoryDedup()
	}

	broker := bus.NewAMQP(cfg.BrokerURL, bus.DefaultRetryPolicy, logr)

	directory := identity.NewMySQLStore(db)
	projector := identity.NewProjector(directory, logr)
	if err := projector.Register(broker, notification.Group); err != nil {
		logr.Fatal("identity projector subscribe failed", zap.Error(err))
	}

	store := notification.NewMySQLStore(db)
	engine := notification.NewEngine(store, directory, notification.DefaultSenders(logr), dedup, logr, nil)
	if err := engine.Register(broker); err != nil {
		logr.Fatal("engine subscribe failed", zap.Error(err))
	}

	sweeper := notification.NewSweeper(engine, cfg.SweepInterval, cfg.SweepInitialDelay, logr)
	if err := sweeper.Start(); err != nil {
		logr.Fatal("sweeper start failed", zap.Error(err))
	}

	e := router.New()
	router.RegisterNotification(e, handler.NewNotificationHandler(engine), cfg.JWTSecret)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server stopped", zap.Error(err))
		}
	}()
	logr.Info("notification service listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sweeper.Stop(ctx); err != nil {
		logr.Error("sweeper stop failed", zap.Error(err))
	}
	if err := e.Shutdown(ctx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
