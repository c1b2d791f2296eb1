package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driving"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// Scheduler is the outer control loop. It runs one pass at a time and
// sleeps between passes. Abandoned and failed passes are logged and the
// loop carries on; only an invariant violation stops it.
type Scheduler struct {
	config   domain.SchedulerConfig
	syncOrch driving.SyncOrchestrator

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(config domain.SchedulerConfig, syncOrch driving.SyncOrchestrator) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = domain.DefaultPollInterval
	}
	return &Scheduler{
		config:   config,
		syncOrch: syncOrch,
	}
}

// Start runs a pass immediately and then every poll interval. It blocks
// until Stop is called, ctx is cancelled or a pass reports an invariant
// violation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	return s.run(ctx, stopCh)
}

// Stop signals the loop to exit after the current pass and waits for it.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	for {
		if err := s.runPass(ctx); err != nil {
			return err
		}

		timer := time.NewTimer(s.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// runPass runs one pass and returns an error only when the loop must stop.
func (s *Scheduler) runPass(ctx context.Context) error {
	report, err := s.syncOrch.RunPass(ctx)
	switch {
	case errors.Is(err, domain.ErrInvariant):
		logger.Error("scheduler stopping", "error", err)
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		logger.Error("pass failed, will retry", "interval", s.config.PollInterval, "error", err)
	case report != nil && report.Status == domain.PassAbandoned:
		logger.Warn("pass abandoned, will retry", "interval", s.config.PollInterval)
	}
	return nil
}

func (s *Scheduler) nextDelay() time.Duration {
	d := s.config.PollInterval
	if s.config.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.config.Jitter)))
	}
	return d
}
