package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"paperscout/models"
)

// Scheduler polls for due research questions on a fixed interval and hands
// them to the discovery service as one batch per tick. The loop itself must
// outlive any failure inside a tick.
type Scheduler struct {
	discovery *DiscoveryService
	questions QuestionStore
	logger    *zap.Logger
	interval  time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler builds a stopped scheduler; call Start to begin ticking.
func NewScheduler(discovery *DiscoveryService, questions QuestionStore, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		discovery: discovery,
		questions: questions,
		logger:    logger,
		interval:  interval,
	}
}

// Start begins the periodic polling. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return fmt.Errorf("register scheduler tick: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.logger.Info("discovery scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the ticker and waits for an in-flight tick to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("discovery scheduler stopped")
}

// IsRunning reports whether the scheduler is currently ticking.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// tick performs one poll-and-dispatch cycle. Every failure mode, including a
// panic, ends here; the next tick always gets its chance.
func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler tick panicked", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	due, err := s.questions.GetDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("polling due questions failed", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	ids := make([]uint, len(due))
	for i, q := range due {
		ids[i] = q.ID
	}
	s.logger.Info("dispatching due questions", zap.Int("count", len(ids)))

	batch := s.discovery.RunBatch(ctx, ids, models.TriggerScheduler)
	if batch.Failed > 0 {
		s.logger.Warn("scheduler batch had failures",
			zap.Int("succeeded", batch.Succeeded), zap.Int("failed", batch.Failed))
	}
}
