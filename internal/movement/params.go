// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package movement

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGearTable is returned if the gear coefficients are not strictly increasing or do not
	// cover reverse and neutral.
	ErrInvalidGearTable = errors.New("invalid gear coefficient table")

	// ErrInvalidParams is returned if a movement parameter is out of range.
	ErrInvalidParams = errors.New("invalid movement parameters")
)

// GearTable holds the speed coefficient per gear, indexed by gear+1. Index 0 is reverse,
// index 1 is neutral.
type GearTable []float64

// DefaultGearTable is the reference gear coefficient table for gears -1 to 6.
var DefaultGearTable = GearTable{-1, 0, 1, 1.5, 2, 2.5, 3, 3.5}

// Coefficient returns the speed coefficient for the given gear. Gears outside the table are
// clamped to the nearest gear.
func (g GearTable) Coefficient(gear int) float64 {
	if len(g) == 0 {
		return 0
	}
	idx := min(max(gear+1, 0), len(g)-1)
	return g[idx]
}

// MinGear returns the lowest gear of the table (reverse).
func (g GearTable) MinGear() int {
	return -1
}

// MaxGear returns the highest forward gear of the table.
func (g GearTable) MaxGear() int {
	return len(g) - 2
}

// Params holds the tunables of the movement model.
type Params struct {
	// MaxThrottle is the upper bound of the throttle
	MaxThrottle float64
	// MinThrottleOnGear is the throttle a gear is engaged with after an upshift and the threshold
	// below which the model shifts down
	MinThrottleOnGear float64
	// ThrottleStepOnDrive is the throttle increase per tick while accelerating
	ThrottleStepOnDrive float64
	// ThrottleDecrementStopping is the throttle decrease per tick while braking
	ThrottleDecrementStopping float64
	// AutoRotationDecrementForward is the throttle decrease per tick while coasting forward
	AutoRotationDecrementForward float64
	// AutoRotationDecrementBackward is the throttle decrease per tick while coasting in reverse
	AutoRotationDecrementBackward float64
	// MaxRotationAngle bounds the steering direction to ±MaxRotationAngle degrees
	MaxRotationAngle float64
	// OneDirectRotationMeters scales gear coefficients and throttle to meters per second
	OneDirectRotationMeters float64
	// DamageThrottle is the throttle the vehicle recovers with after a collision
	DamageThrottle float64
	// Gears is the gear coefficient table
	Gears GearTable
}

// DefaultParams returns the reference movement parameters.
func DefaultParams() Params {
	gears := make(GearTable, len(DefaultGearTable))
	copy(gears, DefaultGearTable)
	return Params{
		MaxThrottle:                   7000,
		MinThrottleOnGear:             90,
		ThrottleStepOnDrive:           10,
		ThrottleDecrementStopping:     100,
		AutoRotationDecrementForward:  10,
		AutoRotationDecrementBackward: 5,
		MaxRotationAngle:              45,
		OneDirectRotationMeters:       6,
		DamageThrottle:                200,
		Gears:                         gears,
	}
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if len(p.Gears) < 3 {
		return fmt.Errorf("%w: need reverse, neutral and at least one forward gear, got %d entries",
			ErrInvalidGearTable, len(p.Gears))
	}
	for i := 1; i < len(p.Gears); i++ {
		if p.Gears[i] <= p.Gears[i-1] {
			return fmt.Errorf("%w: coefficient of gear %d (%g) is not greater than gear %d (%g)",
				ErrInvalidGearTable, i-1, p.Gears[i], i-2, p.Gears[i-1])
		}
	}
	if p.MaxThrottle <= 0 {
		return fmt.Errorf("%w: max throttle must be positive", ErrInvalidParams)
	}
	if p.MinThrottleOnGear <= 0 || p.MinThrottleOnGear >= p.MaxThrottle {
		return fmt.Errorf("%w: min throttle on gear must be between 0 and max throttle", ErrInvalidParams)
	}
	if p.ThrottleStepOnDrive <= 0 || p.ThrottleDecrementStopping <= 0 ||
		p.AutoRotationDecrementForward <= 0 || p.AutoRotationDecrementBackward <= 0 {
		return fmt.Errorf("%w: throttle steps must be positive", ErrInvalidParams)
	}
	if p.MaxRotationAngle <= 0 || p.MaxRotationAngle > 180 {
		return fmt.Errorf("%w: max rotation angle must be in (0,180]", ErrInvalidParams)
	}
	if p.OneDirectRotationMeters <= 0 {
		return fmt.Errorf("%w: one direct rotation meters must be positive", ErrInvalidParams)
	}
	if p.DamageThrottle < 0 || p.DamageThrottle > p.MaxThrottle {
		return fmt.Errorf("%w: damage throttle must be between 0 and max throttle", ErrInvalidParams)
	}
	return nil
}
