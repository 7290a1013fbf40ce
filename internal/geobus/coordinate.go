// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"math"
	"time"

	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/vartype"
)

// Coordinate is a position fix in the shape of a device geolocation reading. Latitude and
// Longitude are in degrees, Accuracy and Altitude in meters, Heading in degrees clockwise from
// north and Speed in km/h. Coordinates are values and never mutated after publication.
type Coordinate struct {
	Latitude         float64
	Longitude        float64
	Accuracy         float64
	Speed            vartype.VarFloat64
	Heading          vartype.VarFloat64
	Altitude         vartype.VarFloat64
	AltitudeAccuracy vartype.VarFloat64
}

// Point returns the surface point of the coordinate. An unset altitude maps to height 0.
func (c Coordinate) Point() geodesy.Point {
	return geodesy.Point{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Height:    c.Altitude.ValueOr(0),
	}
}

// SamePosition reports whether both coordinates describe the same latitude and longitude.
func (c Coordinate) SamePosition(other Coordinate) bool {
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}

// Valid checks if the coordinate is within the bounds of the WGS84 lat/lon ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude > -180 && c.Longitude <= 180
}

// Movement is the drivetrain snapshot published with each tick.
type Movement struct {
	Gear      int
	Throttle  float64
	Gas       float64
	Direction float64
	Damage    uint
	SpeedKmh  float64
}

// Snapshot is the immutable state of the simulation after a tick.
type Snapshot struct {
	Coordinate Coordinate
	Movement   Movement
	// Tick is the number of ticks since tracking started, 0 for the initial fix
	Tick uint64
	// Distance is the distance in meters travelled during the tick
	Distance float64
	// Iterations is the iteration count of the geodesic solution of the tick
	Iterations uint
	At         time.Time
}
