// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geodesy implements geodesic calculations on an ellipsoidal earth model using the
// Vincenty direct and inverse solutions, as well as degree/minute/second helpers.
package geodesy

import "errors"

var (
	// ErrConvergenceFailure is returned when the iterative Vincenty solution does not converge within
	// the iteration limit.
	ErrConvergenceFailure = errors.New("vincenty formula failed to converge")

	// ErrInvalidSurfaceHeight is returned when a point is not on the surface of the ellipsoid.
	ErrInvalidSurfaceHeight = errors.New("point must be on the surface of the ellipsoid")

	// ErrMeridianOverflow is returned when the longitude difference on the auxiliary sphere
	// exceeds π during the inverse solution.
	ErrMeridianOverflow = errors.New("longitude difference on auxiliary sphere exceeds π")
)

// Ellipsoid holds the parameters of a reference ellipsoid.
type Ellipsoid struct {
	// SemiMajorAxis (a) in meters
	SemiMajorAxis float64
	// SemiMinorAxis (b) in meters
	SemiMinorAxis float64
	// Flattening (f)
	Flattening float64
}

// WGS84 is the World Geodetic System 1984 reference ellipsoid.
var WGS84 = Ellipsoid{
	SemiMajorAxis: 6378137,
	SemiMinorAxis: 6356752.314245,
	Flattening:    1 / 298.257223563,
}

// Point is a position on (or above) the ellipsoid. Latitude and Longitude are in degrees,
// Height is in meters above the ellipsoid surface.
type Point struct {
	Latitude  float64
	Longitude float64
	Height    float64
}

// DirectResult is the outcome of a direct (forward) geodesic calculation.
type DirectResult struct {
	Point        Point
	FinalBearing float64
	Iterations   uint
}

// InverseResult is the outcome of an inverse geodesic calculation.
type InverseResult struct {
	Distance       float64
	InitialBearing float64
	FinalBearing   float64
	Iterations     uint
}
