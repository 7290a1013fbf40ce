// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package position derives the next coordinate of the vehicle from its movement state.
package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/movement"
	"github.com/wneessen/geosim/internal/vartype"
)

// ErrInvalidInterval is returned if a Calculator is created with a non-positive tick interval.
var ErrInvalidInterval = errors.New("tick interval must be positive")

// Result is the outcome of a position step.
type Result struct {
	Coordinate geobus.Coordinate
	// Distance is the distance travelled in meters
	Distance float64
	// Iterations is the iteration count of the geodesic solution, 0 if the vehicle did not move
	Iterations uint
}

// Calculator moves a coordinate by the distance the vehicle travels during one tick.
type Calculator struct {
	engine   *geodesy.Engine
	model    *movement.Model
	interval time.Duration
}

// New returns a Calculator for the given tick interval.
func New(engine *geodesy.Engine, model *movement.Model, interval time.Duration) (*Calculator, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	return &Calculator{
		engine:   engine,
		model:    model,
		interval: interval,
	}, nil
}

// Interval returns the tick interval of the Calculator.
func (c *Calculator) Interval() time.Duration {
	return c.interval
}

// Next returns the coordinate reached from current after one tick in the given movement state.
// The heading is offset by the steering direction and the speed is the speed of the state in km/h.
// If the vehicle does not move forward, current is returned with the updated heading and speed.
func (c *Calculator) Next(current geobus.Coordinate, state movement.State) (Result, error) {
	heading := geodesy.Wrap360(state.Direction + current.Heading.ValueOr(0))
	distance := c.model.DistancePerSecond(state) * c.interval.Seconds()

	next := current
	next.Heading = vartype.NewVariable(heading)
	next.Speed = vartype.NewVariable(c.model.SpeedKmh(state))
	if distance <= 0 {
		return Result{Coordinate: next}, nil
	}

	direct, err := c.engine.Forward(current.Point(), distance, heading)
	if err != nil {
		return Result{}, fmt.Errorf("failed to calculate next position: %w", err)
	}
	next.Latitude = direct.Point.Latitude
	next.Longitude = direct.Point.Longitude
	return Result{
		Coordinate: next,
		Distance:   distance,
		Iterations: direct.Iterations,
	}, nil
}
