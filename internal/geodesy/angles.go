// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geodesy

import "math"

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Wrap360 constrains degrees to the range [0,360), e.g. for bearings; -1 => 359, 361 => 1.
func Wrap360(deg float64) float64 {
	if 0 <= deg && deg < 360 {
		return deg
	}
	wrapped := math.Mod(deg, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	// tiny negative values round up to exactly 360 when shifted
	if wrapped >= 360 {
		return 0
	}
	return wrapped
}

// Wrap180 constrains degrees to the range (-180,180], e.g. for longitudes; -181 => 179, 181 => -179.
func Wrap180(deg float64) float64 {
	if -180 < deg && deg <= 180 {
		return deg
	}
	wrapped := math.Mod(deg+180, 360)
	if wrapped <= 0 {
		wrapped += 360
	}
	return wrapped - 180
}

// Wrap90 constrains degrees to the range [-90,90], e.g. for latitudes; -91 => -89, 91 => 89.
// Values outside the range are reflected like a triangle wave with a period of 360°.
func Wrap90(deg float64) float64 {
	if -90 <= deg && deg <= 90 {
		return deg
	}
	wrapped := math.Mod(deg+90, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	if wrapped <= 180 {
		return wrapped - 90
	}
	return 270 - wrapped
}
