// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geodesy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	// DefaultDirectIterations is the iteration limit of the direct solution.
	DefaultDirectIterations = 100
	// DefaultInverseIterations is the iteration limit of the inverse solution.
	DefaultInverseIterations = 1000

	convergenceThreshold = 1e-12
	machineEpsilon       = 0x1p-52

	distancePrecision = 3
	bearingPrecision  = 7
)

// Engine calculates geodesics between points on an ellipsoid using the Vincenty formulae.
// An Engine is stateless and safe for concurrent use.
type Engine struct {
	ellipsoid         Ellipsoid
	directIterations  uint
	inverseIterations uint
}

// Option configures an Engine.
type Option func(*Engine)

// WithEllipsoid sets the reference ellipsoid used by the Engine.
func WithEllipsoid(ellipsoid Ellipsoid) Option {
	return func(e *Engine) {
		e.ellipsoid = ellipsoid
	}
}

// WithIterationLimits overrides the iteration limits of the direct and inverse solutions.
// A value of 0 keeps the respective default.
func WithIterationLimits(direct, inverse uint) Option {
	return func(e *Engine) {
		if direct > 0 {
			e.directIterations = direct
		}
		if inverse > 0 {
			e.inverseIterations = inverse
		}
	}
}

// New returns an Engine on the WGS84 ellipsoid unless configured otherwise.
func New(opts ...Option) *Engine {
	engine := &Engine{
		ellipsoid:         WGS84,
		directIterations:  DefaultDirectIterations,
		inverseIterations: DefaultInverseIterations,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Ellipsoid returns the reference ellipsoid of the Engine.
func (e *Engine) Ellipsoid() Ellipsoid {
	return e.ellipsoid
}

// Forward solves the direct geodesic problem: starting at origin and travelling distance meters
// along the initial bearing (degrees from north), it returns the destination and the final bearing.
// The destination coordinates are normalised but not rounded, the final bearing is rounded
// to 7 decimal places.
func (e *Engine) Forward(origin Point, distance, bearing float64) (DirectResult, error) {
	if origin.Height != 0 {
		return DirectResult{}, fmt.Errorf("%w: origin height is %g", ErrInvalidSurfaceHeight, origin.Height)
	}

	a, b, f := e.ellipsoid.SemiMajorAxis, e.ellipsoid.SemiMinorAxis, e.ellipsoid.Flattening
	phi1 := ToRadians(origin.Latitude)
	lambda1 := ToRadians(origin.Longitude)
	alpha1 := ToRadians(bearing)

	sinAlpha1, cosAlpha1 := math.Sincos(alpha1)
	tanU1 := (1 - f) * math.Tan(phi1)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1

	// angular distance on the sphere from the equator to the origin
	sigma1 := math.Atan2(tanU1, cosAlpha1)
	// alpha is the azimuth of the geodesic at the equator
	sinAlpha := cosU1 * sinAlpha1
	cosSqAlpha := 1 - sinAlpha*sinAlpha
	uSq := cosSqAlpha * (a*a - b*b) / (b * b)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))

	sigma := distance / (b * bigA)
	var sinSigma, cosSigma, cos2SigmaM float64
	var iterations uint
	for {
		cos2SigmaM = math.Cos(2*sigma1 + sigma)
		sinSigma, cosSigma = math.Sincos(sigma)
		deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
		previous := sigma
		sigma = distance/(b*bigA) + deltaSigma
		if math.Abs(sigma-previous) <= convergenceThreshold {
			break
		}
		iterations++
		if iterations >= e.directIterations {
			return DirectResult{}, fmt.Errorf("%w: direct solution exceeded %d iterations",
				ErrConvergenceFailure, e.directIterations)
		}
	}

	x := sinU1*sinSigma - cosU1*cosSigma*cosAlpha1
	phi2 := math.Atan2(sinU1*cosSigma+cosU1*sinSigma*cosAlpha1, (1-f)*math.Sqrt(sinAlpha*sinAlpha+x*x))
	lambda := math.Atan2(sinSigma*sinAlpha1, cosU1*cosSigma-sinU1*sinSigma*cosAlpha1)
	c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
	bigL := lambda - (1-c)*f*sinAlpha*(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
	lambda2 := lambda1 + bigL
	alpha2 := math.Atan2(sinAlpha, -x)

	return DirectResult{
		Point: Point{
			Latitude:  Wrap90(ToDegrees(phi2)),
			Longitude: Wrap180(ToDegrees(lambda2)),
		},
		FinalBearing: roundBearing(ToDegrees(alpha2)),
		Iterations:   iterations,
	}, nil
}

// Inverse solves the inverse geodesic problem: it returns the distance in meters along the
// geodesic between p1 and p2, together with the initial and final bearings. The distance is
// rounded to millimeters, the bearings to 7 decimal places. For coincident points the distance
// is 0 and both bearings are NaN.
func (e *Engine) Inverse(p1, p2 Point) (InverseResult, error) {
	if p1.Height != 0 {
		return InverseResult{}, fmt.Errorf("%w: first point height is %g", ErrInvalidSurfaceHeight, p1.Height)
	}
	if p2.Height != 0 {
		return InverseResult{}, fmt.Errorf("%w: second point height is %g", ErrInvalidSurfaceHeight, p2.Height)
	}

	a, b, f := e.ellipsoid.SemiMajorAxis, e.ellipsoid.SemiMinorAxis, e.ellipsoid.Flattening
	phi1 := ToRadians(p1.Latitude)
	phi2 := ToRadians(p2.Latitude)
	bigL := ToRadians(Wrap180(p2.Longitude - p1.Longitude))

	tanU1 := (1 - f) * math.Tan(phi1)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1
	tanU2 := (1 - f) * math.Tan(phi2)
	cosU2 := 1 / math.Sqrt(1+tanU2*tanU2)
	sinU2 := tanU2 * cosU2

	antipodal := math.Abs(bigL) > math.Pi/2 || math.Abs(phi2-phi1) > math.Pi/2

	lambda := bigL
	sigma, cosSigma := 0.0, 1.0
	if antipodal {
		sigma, cosSigma = math.Pi, -1
	}
	var sinLambda, cosLambda, sinSigma, sinSqSigma float64
	cos2SigmaM, sinAlpha, cosSqAlpha := 1.0, 0.0, 1.0

	var iterations uint
	for {
		sinLambda, cosLambda = math.Sincos(lambda)
		sinSqSigma = (cosU2*sinLambda)*(cosU2*sinLambda) +
			(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda)
		// co-incident or antipodal points
		if math.Abs(sinSqSigma) < machineEpsilon {
			break
		}
		sinSigma = math.Sqrt(sinSqSigma)
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = 0
		// on the equatorial line cosSqAlpha is 0
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		previous := lambda
		lambda = bigL + (1-c)*f*sinAlpha*(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		check := math.Abs(lambda)
		if antipodal {
			check = math.Abs(lambda) - math.Pi
		}
		if check > math.Pi {
			return InverseResult{}, fmt.Errorf("%w: λ is %g", ErrMeridianOverflow, lambda)
		}
		if math.Abs(lambda-previous) <= convergenceThreshold {
			break
		}
		iterations++
		if iterations >= e.inverseIterations {
			return InverseResult{}, fmt.Errorf("%w: inverse solution exceeded %d iterations",
				ErrConvergenceFailure, e.inverseIterations)
		}
	}

	uSq := cosSqAlpha * (a*a - b*b) / (b * b)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
	distance := b * bigA * (sigma - deltaSigma)

	alpha1, alpha2 := 0.0, math.Pi
	if math.Abs(sinSqSigma) >= machineEpsilon {
		alpha1 = math.Atan2(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
		alpha2 = math.Atan2(cosU1*sinLambda, -sinU1*cosU2+cosU1*sinU2*cosLambda)
	}

	result := InverseResult{
		Distance:       scalar.Round(distance, distancePrecision),
		InitialBearing: roundBearing(ToDegrees(alpha1)),
		FinalBearing:   roundBearing(ToDegrees(alpha2)),
		Iterations:     iterations,
	}
	if math.Abs(distance) < machineEpsilon {
		result.Distance = 0
		result.InitialBearing = math.NaN()
		result.FinalBearing = math.NaN()
	}
	return result, nil
}

// Distance returns the geodesic distance between p1 and p2 in meters, or NaN if it cannot be
// calculated.
func (e *Engine) Distance(p1, p2 Point) float64 {
	result, err := e.Inverse(p1, p2)
	if err != nil {
		return math.NaN()
	}
	return result.Distance
}

// InitialBearing returns the initial bearing from p1 to p2 in degrees, or NaN if it cannot be
// calculated or the points coincide.
func (e *Engine) InitialBearing(p1, p2 Point) float64 {
	result, err := e.Inverse(p1, p2)
	if err != nil {
		return math.NaN()
	}
	return result.InitialBearing
}

// FinalBearing returns the bearing arriving at p2 from p1 in degrees, or NaN if it cannot be
// calculated or the points coincide.
func (e *Engine) FinalBearing(p1, p2 Point) float64 {
	result, err := e.Inverse(p1, p2)
	if err != nil {
		return math.NaN()
	}
	return result.FinalBearing
}

// Destination returns the point reached from origin after travelling distance meters on the
// initial bearing.
func (e *Engine) Destination(origin Point, distance, bearing float64) (Point, error) {
	result, err := e.Forward(origin, distance, bearing)
	if err != nil {
		return Point{}, err
	}
	return result.Point, nil
}

// FinalBearingOn returns the final bearing after travelling distance meters from origin on the
// initial bearing.
func (e *Engine) FinalBearingOn(origin Point, distance, bearing float64) (float64, error) {
	result, err := e.Forward(origin, distance, bearing)
	if err != nil {
		return math.NaN(), err
	}
	return result.FinalBearing, nil
}

// roundBearing normalises a bearing to [0,360) and rounds it to 7 decimal places.
func roundBearing(deg float64) float64 {
	if math.IsNaN(deg) {
		return deg
	}
	return Wrap360(scalar.Round(Wrap360(deg), bearingPrecision))
}
