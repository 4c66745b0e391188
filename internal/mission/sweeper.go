package mission

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule is the cron spec of the expiry sweep.
const DefaultSweepSchedule = "@every 15m"

// Sweeper periodically expires OPEN missions whose start date has passed.
type Sweeper struct {
	cron    *cron.Cron
	service *Service
	spec    string
	logger  *zap.Logger

	// initial tracks the sweep run by Start.
	initial sync.WaitGroup
}

func NewSweeper(service *Service, spec string, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSweepSchedule
	}

	return &Sweeper{
		cron:    cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		service: service,
		spec:    spec,
		logger:  log,
	}
}

// Start registers the sweep, starts the scheduler and runs one sweep right away.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("expiry sweep started", zap.String("schedule", s.spec))

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.RunOnce(ctx)
	}()

	return nil
}

// Stop stops the scheduler and waits for running sweeps, including the one
// started by Start.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
	s.logger.Info("expiry sweep stopped")
}

// RunOnce runs a single sweep and returns how many missions it expired.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	expired, err := s.service.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Int("expired", expired), zap.Error(err))
		return expired
	}

	s.logger.Info("expiry sweep finished", zap.Int("expired", expired))
	return expired
}

// cronLogger routes cron's own logs to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
