// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package simulator

import (
	"fmt"

	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/vartype"
)

// accuracySegments is the number of segments of the accuracy ring.
const accuracySegments = 32

// State returns the lifecycle state of the simulation.
func (s *Simulator) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Tracking reports whether the simulation is tracking.
func (s *Simulator) Tracking() bool {
	return s.State() == StateTracking
}

// TrackingOptions returns the tracking options the simulation was configured with.
func (s *Simulator) TrackingOptions() TrackingOptions {
	return s.options.TrackingOptions
}

// Coordinate returns the current coordinate of the vehicle.
func (s *Simulator) Coordinate() geobus.Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coordinate
}

// Snapshot returns the last published snapshot. It is unset before tracking started.
func (s *Simulator) Snapshot() vartype.Variable[geobus.Snapshot] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.geostate.Last()
	if !ok {
		return vartype.Variable[geobus.Snapshot]{}
	}
	return vartype.NewVariable(snapshot)
}

// Movement returns the current drivetrain state.
func (s *Simulator) Movement() geobus.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return geobus.Movement{
		Gear:      s.movement.Gear,
		Throttle:  s.movement.Throttle,
		Gas:       s.movement.Throttle / s.model.Params().MaxThrottle,
		Direction: s.movement.Direction,
		Damage:    s.movement.Damage,
		SpeedKmh:  max(s.model.SpeedKmh(s.movement), 0),
	}
}

// Ticks returns the number of ticks since tracking started.
func (s *Simulator) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}

// Position returns the current surface point. It is unset unless the simulation is tracking.
func (s *Simulator) Position() vartype.Variable[geodesy.Point] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateTracking {
		return vartype.Variable[geodesy.Point]{}
	}
	return vartype.NewVariable(s.coordinate.Point())
}

// Accuracy returns the accuracy radius in meters. It is unset unless the simulation is tracking.
func (s *Simulator) Accuracy() vartype.VarFloat64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateTracking {
		return vartype.VarFloat64{}
	}
	return vartype.NewVariable(s.coordinate.Accuracy)
}

// Heading returns the heading in radians clockwise from north. It is unset unless the simulation
// is tracking.
func (s *Simulator) Heading() vartype.VarFloat64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateTracking || !s.coordinate.Heading.IsSet() {
		return vartype.VarFloat64{}
	}
	return vartype.NewVariable(geodesy.ToRadians(s.coordinate.Heading.Value()))
}

// Speed returns the speed in km/h. It is unset unless the simulation is tracking.
func (s *Simulator) Speed() vartype.VarFloat64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateTracking {
		return vartype.VarFloat64{}
	}
	return s.coordinate.Speed
}

// Altitude is not simulated and always unset.
func (s *Simulator) Altitude() vartype.VarFloat64 {
	return vartype.VarFloat64{}
}

// AltitudeAccuracy is not simulated and always unset.
func (s *Simulator) AltitudeAccuracy() vartype.VarFloat64 {
	return vartype.VarFloat64{}
}

// AccuracyGeometry returns a closed ring of points at accuracy distance around the current
// position. It returns nil if the simulation is not tracking or the accuracy is not positive.
func (s *Simulator) AccuracyGeometry() ([]geodesy.Point, error) {
	s.mu.RLock()
	center := s.coordinate
	tracking := s.state == StateTracking
	s.mu.RUnlock()
	if !tracking || center.Accuracy <= 0 {
		return nil, nil
	}

	ring := make([]geodesy.Point, 0, accuracySegments+1)
	for i := range accuracySegments {
		bearing := float64(i) * 360 / accuracySegments
		result, err := s.engine.Forward(center.Point(), center.Accuracy, bearing)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate accuracy geometry: %w", err)
		}
		ring = append(ring, result.Point)
	}
	ring = append(ring, ring[0])
	return ring, nil
}

// Changes subscribes to change events.
func (s *Simulator) Changes(size int) (<-chan geobus.Event, func()) {
	return s.bus.Subscribe(size, geobus.EventChange)
}

// PositionChanges subscribes to position change events.
func (s *Simulator) PositionChanges(size int) (<-chan geobus.Event, func()) {
	return s.bus.Subscribe(size, geobus.EventPositionChange)
}

// Errors subscribes to error events.
func (s *Simulator) Errors(size int) (<-chan geobus.Event, func()) {
	return s.bus.Subscribe(size, geobus.EventError)
}
