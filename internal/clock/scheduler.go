// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package clock provides the tick source of the simulation: a scheduling port with a gocron
// backed and a manually advanced implementation, and the SimulationClock built on top of it.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wneessen/geosim/internal/logger"
)

// ErrInvalidInterval is returned when a periodic timer is requested with a non-positive interval.
var ErrInvalidInterval = errors.New("interval must be positive")

// Scheduler is the scheduling port the simulation clock is driven by.
type Scheduler interface {
	// AfterDelay runs fn once after the delay has passed.
	AfterDelay(delay time.Duration, fn func()) (uuid.UUID, error)
	// EveryInterval runs fn every interval, starting one interval from now. Runs never overlap.
	EveryInterval(interval time.Duration, fn func()) (uuid.UUID, error)
	// Cancel removes a timer. Canceling an unknown or already fired timer is a no-op.
	Cancel(id uuid.UUID)
}

// GocronScheduler implements Scheduler on top of a gocron scheduler.
type GocronScheduler struct {
	clock     clockwork.Clock
	scheduler gocron.Scheduler

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewGocronScheduler creates and starts a gocron scheduler with the given clock. A nil clock
// selects the real clock.
func NewGocronScheduler(log *logger.Logger, clock clockwork.Clock) (*GocronScheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	options := []gocron.SchedulerOption{gocron.WithClock(clock)}
	if log != nil {
		options = append(options, gocron.WithLogger(log))
	}
	scheduler, err := gocron.NewScheduler(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduler.Start()
	return &GocronScheduler{clock: clock, scheduler: scheduler}, nil
}

// AfterDelay satisfies the Scheduler interface for the GocronScheduler type.
func (s *GocronScheduler) AfterDelay(delay time.Duration, fn func()) (uuid.UUID, error) {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(s.clock.Now().Add(delay))
	}
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(fn),
		gocron.WithName("simulation_start_delay"),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create one-time job: %w", err)
	}
	return job.ID(), nil
}

// EveryInterval satisfies the Scheduler interface for the GocronScheduler type.
func (s *GocronScheduler) EveryInterval(interval time.Duration, fn func()) (uuid.UUID, error) {
	if interval <= 0 {
		return uuid.Nil, ErrInvalidInterval
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("simulation_tick"),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create interval job: %w", err)
	}
	return job.ID(), nil
}

// Cancel satisfies the Scheduler interface for the GocronScheduler type.
func (s *GocronScheduler) Cancel(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	// one-time jobs are removed by gocron once they ran, so ErrJobNotFound is expected
	_ = s.scheduler.RemoveJob(id)
}

// Shutdown stops the underlying gocron scheduler and waits for running jobs to finish. Repeated
// calls return the result of the first one.
func (s *GocronScheduler) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.scheduler.Shutdown()
	})
	return s.shutdownErr
}
