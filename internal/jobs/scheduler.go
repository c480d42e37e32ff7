// Package jobs runs periodic maintenance in the API process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/redmonkez12/natours-api/internal/logging"
)

const sweepTimeout = 30 * time.Second

// ResetTokenStore clears password reset tokens past their expiry.
type ResetTokenStore interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// WindowSweeper drops expired in-memory rate limit windows.
type WindowSweeper interface {
	Sweep() int
}

// Scheduler wraps a gocron scheduler with the API's maintenance jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *logging.Logger
	now       func() time.Time
}

func NewScheduler(logger *logging.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, logger: logger, now: time.Now}, nil
}

// ScheduleResetTokenSweep clears expired reset tokens every interval.
func (s *Scheduler) ScheduleResetTokenSweep(store ResetTokenStore, interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sweepResetTokens, store),
		gocron.WithName("reset-token-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reset token sweep: %w", err)
	}
	return nil
}

// ScheduleWindowSweep trims an in-memory rate limit store every interval.
func (s *Scheduler) ScheduleWindowSweep(store WindowSweeper, interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := store.Sweep(); n > 0 {
				s.logger.Debug("rate limit windows swept", "removed", n)
			}
		}),
		gocron.WithName("rate-limit-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule rate limit sweep: %w", err)
	}
	return nil
}

// Names lists the scheduled jobs.
func (s *Scheduler) Names() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.logger.Info("starting background jobs", "jobs", s.Names())
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	s.logger.Info("stopping background jobs")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) sweepResetTokens(store ResetTokenStore) error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := store.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		s.logger.Error("reset token sweep failed", "error", err)
		return err
	}
	if n > 0 {
		s.logger.Info("expired reset tokens cleared", "count", n)
	}
	return nil
}
