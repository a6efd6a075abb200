package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically re-drives PENDING notifications through the engine.
// The first run is delayed so the consumers have a chance to catch up after
// a restart before the sweep competes with live traffic.
type Sweeper struct {
	engine       *Engine
	cron         *cron.Cron
	interval     time.Duration
	initialDelay time.Duration
	delayTimer   *time.Timer
	log          *zap.Logger
}

// NewSweeper builds a sweeper. Non-positive durations fall back to a 60s
// interval and a 10s initial delay.
func NewSweeper(engine *Engine, interval, initialDelay time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if initialDelay < 0 {
		initialDelay = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		engine:       engine,
		cron:         cron.New(cron.WithSeconds()),
		interval:     interval,
		initialDelay: initialDelay,
		log:          log,
	}
}

// Start schedules the sweep after the initial delay and returns immediately.
func (s *Sweeper) Start() error {
	schedule := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return err
	}
	s.delayTimer = time.AfterFunc(s.initialDelay, func() {
		s.runOnce()
		s.cron.Start()
	})
	s.log.Info("notification sweeper scheduled",
		zap.Duration("interval", s.interval),
		zap.Duration("initial_delay", s.initialDelay))
	return nil
}

// Stop cancels the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.delayTimer != nil {
		s.delayTimer.Stop()
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.engine.Sweep(ctx); err != nil {
		s.log.Error("sweep failed", zap.Error(err))
	}
}
