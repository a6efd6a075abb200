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
	"github.com/buberdinner/dinner-marketplace/internal/reservation"
	"github.com/buberdinner/dinner-marketplace/internal/router"
	"github.com/buberdinner/dinner-marketplace/pkg/logger"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logr = logger.Named(logr, "reservation")
	defer logr.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logr.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	broker := bus.NewAMQP(cfg.BrokerURL, bus.DefaultRetryPolicy, logr)

	projection := reservation.NewMySQLProjectionStore(db)
	svc := reservation.NewService(reservation.NewMySQLRepository(db), projection, broker, logr, nil)

	// The dinner projection is consumed in-process; losing a message only
	// delays snapshot convergence until the next dinner fact.
	projector := reservation.NewDinnerProjector(projection, logr)
	if err := projector.Register(broker); err != nil {
		logr.Fatal("projector subscribe failed", zap.Error(err))
	}

	e := router.New()
	router.RegisterReservation(e, handler.NewReservationHandler(svc), cfg.JWTSecret)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server stopped", zap.Error(err))
		}
	}()
	logr.Info("reservation service listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
