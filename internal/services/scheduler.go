package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepScheduler runs the retention sweeper on a fixed interval. Sweeps can
// also be triggered on demand over HTTP; the scheduler and the trigger
// share the same Sweep implementation.
type SweepScheduler struct {
	sweeper  *RetentionSweeper
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewSweepScheduler creates a SweepScheduler
func NewSweepScheduler(sweeper *RetentionSweeper, interval time.Duration, logger *slog.Logger) *SweepScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweepScheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("sweep scheduler started", slog.Duration("interval", s.interval))
}

// Stop gracefully stops the background sweep loop
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("sweep scheduler stopped")
}

// IsRunning returns whether the scheduler loop is active
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SweepScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *SweepScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed",
			slog.Int("messages_deleted", summary.MessagesDeleted),
			slog.Any("error", err))
		return
	}
	s.logger.Info("scheduled sweep finished", slog.String("summary", summary.String()))
}
