// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package simulator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wneessen/geosim/internal/clock"
	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/movement"
)

// ErrInvalidStart is returned for a start position outside the valid latitude range.
var ErrInvalidStart = errors.New("invalid start position")

// TrackingOptions mirror the position options of a device geolocation API. They are reported
// back to consumers as configured.
type TrackingOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// StartPosition is the initial fix of the simulation.
type StartPosition struct {
	Latitude  float64
	Longitude float64
	// Heading in degrees clockwise from north
	Heading float64
}

// Options configure a Simulator.
type Options struct {
	// Tracking starts tracking on construction
	Tracking        bool
	TrackingOptions TrackingOptions
	Start           StartPosition
	Tick            clock.TickConfig
	// Accuracy is the reported accuracy radius in meters
	Accuracy float64
	Movement movement.Params
}

// DefaultOptions returns the options of a simulation starting in Moscow, ticking every second.
func DefaultOptions() Options {
	return Options{
		Tracking: true,
		TrackingOptions: TrackingOptions{
			HighAccuracy: true,
			Timeout:      5 * time.Second,
		},
		Start: StartPosition{
			Latitude:  55.75340586267649,
			Longitude: 37.61910754845215,
		},
		Tick:     clock.TickConfig{Interval: time.Second},
		Accuracy: 5,
		Movement: movement.DefaultParams(),
	}
}

func (o Options) validate() error {
	if math.IsNaN(o.Start.Latitude) || o.Start.Latitude < -90 || o.Start.Latitude > 90 {
		return fmt.Errorf("%w: latitude %g out of range", ErrInvalidStart, o.Start.Latitude)
	}
	if math.IsNaN(o.Start.Longitude) || math.IsInf(o.Start.Longitude, 0) {
		return fmt.Errorf("%w: longitude %g is not finite", ErrInvalidStart, o.Start.Longitude)
	}
	if math.IsNaN(o.Start.Heading) || math.IsInf(o.Start.Heading, 0) {
		return fmt.Errorf("%w: heading %g is not finite", ErrInvalidStart, o.Start.Heading)
	}
	return nil
}

// Option customizes the collaborators of a Simulator.
type Option func(*Simulator)

// WithClock sets the clock used for event timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Simulator) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithEngine sets the geodesic engine.
func WithEngine(engine *geodesy.Engine) Option {
	return func(s *Simulator) {
		if engine != nil {
			s.engine = engine
		}
	}
}
