// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package simulator implements a simulated geolocation source. A vehicle model is advanced on
// every tick of a simulation clock and the resulting position fixes are published on a GeoBus,
// in the shape of a device geolocation API.
package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wneessen/geosim/internal/clock"
	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/logger"
	"github.com/wneessen/geosim/internal/movement"
	"github.com/wneessen/geosim/internal/position"
	"github.com/wneessen/geosim/internal/vartype"
)

var (
	// ErrSessionClosed is returned when tracking is requested on a stopped simulation session.
	ErrSessionClosed = errors.New("simulation session is closed")

	// ErrBusRequired is returned when a Simulator is created without a GeoBus.
	ErrBusRequired = errors.New("simulator requires a geobus")
)

// State is the lifecycle state of a Simulator.
type State int

const (
	StateIdle State = iota
	StateTracking
	StateStopped
)

// String satisfies the fmt.Stringer interface for the State type.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Control is a movement control of the vehicle.
type Control int

const (
	ControlAccelerate Control = iota
	ControlBrake
	ControlSteerLeft
	ControlSteerRight
)

// Simulator owns the movement model, the position calculator and the simulation clock of one
// simulation session.
type Simulator struct {
	id      uuid.UUID
	bus     *geobus.GeoBus
	logger  *logger.Logger
	engine  *geodesy.Engine
	clock   clockwork.Clock
	model   *movement.Model
	calc    *position.Calculator
	ticker  *clock.SimulationClock
	options Options

	intentLock sync.Mutex
	intent     movement.Intent

	mu         sync.RWMutex
	state      State
	movement   movement.State
	coordinate geobus.Coordinate
	geostate   geobus.GeolocationState
	ticks      uint64
}

// New creates a simulation session. If Options.Tracking is set, tracking starts right away.
func New(options Options, scheduler clock.Scheduler, bus *geobus.GeoBus, log *logger.Logger,
	opts ...Option,
) (*Simulator, error) {
	if bus == nil {
		return nil, ErrBusRequired
	}
	if log == nil {
		return nil, geobus.ErrLoggerRequired
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	sim := &Simulator{
		id:      uuid.New(),
		bus:     bus,
		logger:  log,
		engine:  geodesy.New(),
		clock:   clockwork.NewRealClock(),
		options: options,
	}
	for _, opt := range opts {
		opt(sim)
	}

	model, err := movement.New(options.Movement)
	if err != nil {
		return nil, fmt.Errorf("failed to create movement model: %w", err)
	}
	sim.model = model
	calc, err := position.New(sim.engine, model, options.Tick.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to create position calculator: %w", err)
	}
	sim.calc = calc
	ticker, err := clock.NewSimulationClock(scheduler, options.Tick, sim.tick)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation clock: %w", err)
	}
	sim.ticker = ticker
	sim.coordinate = startCoordinate(options)

	if options.Tracking {
		if err = sim.SetTracking(true); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// ID returns the session ID of the simulation.
func (s *Simulator) ID() uuid.UUID {
	return s.id
}

// Bus returns the GeoBus the simulation publishes on.
func (s *Simulator) Bus() *geobus.GeoBus {
	return s.bus
}

// SetTracking starts or stops tracking. Starting publishes the start position as the initial fix
// and starts the clock. Stopping is final for the session.
func (s *Simulator) SetTracking(enabled bool) error {
	if !enabled {
		s.Close()
		return nil
	}

	s.mu.Lock()
	switch s.state {
	case StateTracking:
		s.mu.Unlock()
		return nil
	case StateStopped:
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err := s.ticker.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start simulation clock: %w", err)
	}
	s.state = StateTracking
	snapshot := s.snapshotLocked(position.Result{Coordinate: s.coordinate})
	s.geostate.Update(snapshot)
	s.mu.Unlock()

	s.logger.Info("tracking started", slog.String("session", s.id.String()),
		slog.Float64("lat", snapshot.Coordinate.Latitude), slog.Float64("lon", snapshot.Coordinate.Longitude))
	s.publish(snapshot, true, true)
	return nil
}

// Close stops tracking and the clock. No further events are published after Close returns.
// Close is idempotent.
func (s *Simulator) Close() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	wasTracking := s.state == StateTracking
	s.state = StateStopped
	s.mu.Unlock()

	s.ticker.Stop()
	if wasTracking {
		s.logger.Info("tracking stopped", slog.String("session", s.id.String()))
	}
}

// SetIntent presses or releases a movement control. Controls are sampled once per tick.
func (s *Simulator) SetIntent(control Control, pressed bool) {
	s.intentLock.Lock()
	defer s.intentLock.Unlock()
	switch control {
	case ControlAccelerate:
		s.intent.Accelerate = pressed
	case ControlBrake:
		s.intent.Brake = pressed
	case ControlSteerLeft:
		s.intent.SteerLeft = pressed
	case ControlSteerRight:
		s.intent.SteerRight = pressed
	}
}

// Intent returns the current movement intent.
func (s *Simulator) Intent() movement.Intent {
	s.intentLock.Lock()
	defer s.intentLock.Unlock()
	return s.intent
}

// Collide signals a collision. It is applied once, on the next tick.
func (s *Simulator) Collide() {
	s.intentLock.Lock()
	s.intent.Collision = true
	s.intentLock.Unlock()
}

// Reset stops the vehicle and centers the steering. The position is kept.
func (s *Simulator) Reset() {
	s.mu.Lock()
	s.movement = s.model.Reset(s.movement)
	s.mu.Unlock()
}

// Resync publishes the latest fix again, e.g. after the host resumed from sleep.
func (s *Simulator) Resync() {
	s.mu.RLock()
	snapshot, ok := s.geostate.Last()
	tracking := s.state == StateTracking
	s.mu.RUnlock()
	if !ok || !tracking {
		return
	}
	snapshot.At = s.clock.Now()
	s.publish(snapshot, true, true)
}

// sampleIntent returns the intent for the current tick and consumes the collision signal.
func (s *Simulator) sampleIntent() movement.Intent {
	s.intentLock.Lock()
	defer s.intentLock.Unlock()
	intent := s.intent
	s.intent.Collision = false
	return intent
}

// tick advances the simulation by one step.
func (s *Simulator) tick() {
	intent := s.sampleIntent()

	s.mu.Lock()
	if s.state != StateTracking {
		s.mu.Unlock()
		return
	}
	s.ticks++
	s.movement = s.model.Advance(s.movement, intent)

	var result position.Result
	if s.model.SpeedKmh(s.movement) <= 0 {
		// a standing vehicle keeps its position and heading, reverse gear included
		result.Coordinate = s.coordinate
		result.Coordinate.Speed = vartype.NewVariable(0.0)
	} else {
		var err error
		result, err = s.calc.Next(s.coordinate, s.movement)
		if err != nil {
			tick := s.ticks
			s.mu.Unlock()
			s.logger.Warn("failed to calculate position, skipping tick", logger.Err(err),
				slog.Uint64("tick", tick))
			s.publishError(geobus.PositionUnavailable, err)
			return
		}
	}

	s.coordinate = result.Coordinate
	snapshot := s.snapshotLocked(result)
	moved := s.geostate.Moved(snapshot)
	changed := s.geostate.HasChanged(snapshot)
	s.geostate.Update(snapshot)
	s.mu.Unlock()

	s.publish(snapshot, changed, moved)
}

// snapshotLocked builds the snapshot of the current state. The caller must hold the lock.
func (s *Simulator) snapshotLocked(result position.Result) geobus.Snapshot {
	params := s.model.Params()
	return geobus.Snapshot{
		Coordinate: result.Coordinate,
		Movement: geobus.Movement{
			Gear:      s.movement.Gear,
			Throttle:  s.movement.Throttle,
			Gas:       s.movement.Throttle / params.MaxThrottle,
			Direction: s.movement.Direction,
			Damage:    s.movement.Damage,
			SpeedKmh:  math.Max(s.model.SpeedKmh(s.movement), 0),
		},
		Tick:       s.ticks,
		Distance:   result.Distance,
		Iterations: result.Iterations,
		At:         s.clock.Now(),
	}
}

func (s *Simulator) publish(snapshot geobus.Snapshot, changed, moved bool) {
	if changed {
		s.bus.Publish(geobus.Event{Kind: geobus.EventChange, Snapshot: snapshot, At: snapshot.At})
	}
	if moved {
		s.bus.Publish(geobus.Event{Kind: geobus.EventPositionChange, Snapshot: snapshot, At: snapshot.At})
	}
}

func (s *Simulator) publishError(code geobus.ErrorCode, err error) {
	s.bus.Publish(geobus.Event{
		Kind:  geobus.EventError,
		Error: &geobus.PositionError{Code: code, Message: err.Error()},
		At:    s.clock.Now(),
	})
}

func startCoordinate(options Options) geobus.Coordinate {
	return geobus.Coordinate{
		Latitude:  options.Start.Latitude,
		Longitude: geodesy.Wrap180(options.Start.Longitude),
		Accuracy:  options.Accuracy,
		Speed:     vartype.NewVariable(0.0),
		Heading:   vartype.NewVariable(geodesy.Wrap360(options.Start.Heading)),
	}
}
