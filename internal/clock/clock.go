// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClockStarted is returned when Start is called on a running clock.
	ErrClockStarted = errors.New("simulation clock already started")

	// ErrClockStopped is returned when Start is called on a stopped clock. A stopped clock
	// cannot be restarted.
	ErrClockStopped = errors.New("simulation clock is stopped")

	// ErrNoTickFunc is returned when a clock is created without a tick callback.
	ErrNoTickFunc = errors.New("tick callback is required")
)

// TickConfig holds the tick timing of a SimulationClock.
type TickConfig struct {
	// Interval between two ticks
	Interval time.Duration
	// StartDelay is waited once before the first interval starts
	StartDelay time.Duration
}

type clockState int

const (
	stateIdle clockState = iota
	stateRunning
	stateStopped
)

// SimulationClock invokes a tick callback every interval, after an optional start delay.
// The first tick happens at StartDelay+Interval after Start.
type SimulationClock struct {
	scheduler Scheduler
	config    TickConfig
	tick      func()

	mu         sync.Mutex
	state      clockState
	delayID    uuid.UUID
	intervalID uuid.UUID

	// firing is held for the duration of a tick callback
	firing sync.Mutex
}

// NewSimulationClock returns an idle SimulationClock.
func NewSimulationClock(scheduler Scheduler, config TickConfig, tick func()) (*SimulationClock, error) {
	if tick == nil {
		return nil, ErrNoTickFunc
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, config.Interval)
	}
	if config.StartDelay < 0 {
		config.StartDelay = 0
	}
	return &SimulationClock{
		scheduler: scheduler,
		config:    config,
		tick:      tick,
	}, nil
}

// Config returns the tick configuration of the clock.
func (c *SimulationClock) Config() TickConfig {
	return c.config
}

// Start schedules the ticks.
func (c *SimulationClock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateRunning:
		return ErrClockStarted
	case stateStopped:
		return ErrClockStopped
	}

	if c.config.StartDelay > 0 {
		id, err := c.scheduler.AfterDelay(c.config.StartDelay, c.beginInterval)
		if err != nil {
			return fmt.Errorf("failed to schedule start delay: %w", err)
		}
		c.delayID = id
		c.state = stateRunning
		return nil
	}

	id, err := c.scheduler.EveryInterval(c.config.Interval, c.fire)
	if err != nil {
		return fmt.Errorf("failed to schedule ticks: %w", err)
	}
	c.intervalID = id
	c.state = stateRunning
	return nil
}

// Stop cancels all pending ticks and waits for an in-flight tick to finish. No tick callback
// runs after Stop returns. Stop is idempotent and must not be called from the tick callback.
func (c *SimulationClock) Stop() {
	c.mu.Lock()
	if c.state == stateStopped {
		c.mu.Unlock()
		return
	}
	c.state = stateStopped
	delayID, intervalID := c.delayID, c.intervalID
	c.delayID, c.intervalID = uuid.Nil, uuid.Nil
	c.mu.Unlock()

	if delayID != uuid.Nil {
		c.scheduler.Cancel(delayID)
	}
	if intervalID != uuid.Nil {
		c.scheduler.Cancel(intervalID)
	}

	c.firing.Lock()
	defer c.firing.Unlock()
}

// Running reports whether the clock is started and not stopped.
func (c *SimulationClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// beginInterval is called once the start delay has passed.
func (c *SimulationClock) beginInterval() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delayID = uuid.Nil
	if c.state != stateRunning {
		return
	}
	id, err := c.scheduler.EveryInterval(c.config.Interval, c.fire)
	if err != nil {
		// the interval was validated on construction, so a failure means the scheduler is gone
		c.state = stateStopped
		return
	}
	c.intervalID = id
}

func (c *SimulationClock) fire() {
	c.firing.Lock()
	defer c.firing.Unlock()

	c.mu.Lock()
	running := c.state == stateRunning
	c.mu.Unlock()
	if !running {
		return
	}
	c.tick()
}
