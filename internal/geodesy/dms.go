// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geodesy

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DMSFormat selects the degree/minute/second representation.
type DMSFormat string

const (
	// FormatDeg renders decimal degrees, e.g. 051.4778°
	FormatDeg DMSFormat = "d"
	// FormatDegMin renders degrees and decimal minutes, e.g. 051° 28.67′
	FormatDegMin DMSFormat = "dm"
	// FormatDegMinSec renders degrees, minutes and seconds, e.g. 051° 28′ 40″
	FormatDegMinSec DMSFormat = "dms"
)

// DMSSeparator separates the degree, minute, second and cardinal parts (narrow no-break space).
const DMSSeparator = "\u202f"

// DefaultPrecision selects the default decimal places of the chosen format.
const DefaultPrecision = -1

// InvalidDMS is returned by the latitude/longitude/bearing formatters for non-finite input.
const InvalidDMS = "–"

var (
	// ErrInvalidDMS is returned when a string cannot be parsed as degrees/minutes/seconds.
	ErrInvalidDMS = errors.New("invalid degrees/minutes/seconds value")

	// ErrInvalidPrecision is returned for an unsupported compass point precision.
	ErrInvalidPrecision = errors.New("invalid compass point precision")
)

var (
	dmsPartSplit = regexp.MustCompile(`[^0-9.,]+`)
	dmsNegative  = regexp.MustCompile(`(?i)^-|[WS]$`)
	dmsCardinal  = regexp.MustCompile(`(?i)[NSEW]$`)
)

var cardinals = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// ParseDMS parses a degrees/minutes/seconds string into decimal degrees. Plain signed decimal
// numbers are accepted as-is. A leading '-' or a trailing S or W make the result negative.
//
//	ParseDMS("51° 28′ 40.37″ N") // 51.4778806
//	ParseDMS("000° 00′ 05.29″ W") // -0.0014694
func ParseDMS(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if deg, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsInf(deg, 0) || math.IsNaN(deg) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDMS, value)
		}
		return deg, nil
	}

	stripped := dmsCardinal.ReplaceAllString(strings.TrimPrefix(trimmed, "-"), "")
	parts := dmsPartSplit.Split(stripped, -1)
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 1 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDMS, value)
	}

	var deg float64
	divisor := 1.0
	for _, part := range parts {
		number, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDMS, value, err)
		}
		deg += number / divisor
		divisor *= 60
	}
	if dmsNegative.MatchString(trimmed) {
		deg = -deg
	}
	return deg, nil
}

// FormatDMS renders the absolute value of deg in the given format with dp decimal places on the
// last component. A negative dp selects the format default (4 for d, 2 for dm, 0 for dms).
// Degrees are left-padded to three digits. It returns false for non-finite input.
func FormatDMS(deg float64, format DMSFormat, dp int) (string, bool) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return "", false
	}
	switch format {
	case FormatDeg, FormatDegMin, FormatDegMinSec:
	default:
		format = FormatDeg
	}
	if dp < 0 {
		switch format {
		case FormatDegMin:
			dp = 2
		case FormatDegMinSec:
			dp = 0
		default:
			dp = 4
		}
	}

	deg = math.Abs(deg)
	switch format {
	case FormatDegMin:
		degrees := math.Floor(deg)
		minutes := strconv.FormatFloat(math.Mod(deg*60, 60), 'f', dp, 64)
		if parsed, _ := strconv.ParseFloat(minutes, 64); parsed == 60 {
			minutes = strconv.FormatFloat(0, 'f', dp, 64)
			degrees++
		}
		return fmt.Sprintf("%03d°%s%s′", int(degrees), DMSSeparator, padTwo(minutes)), true
	case FormatDegMinSec:
		degrees := math.Floor(deg)
		minutes := int(math.Floor(deg*3600/60)) % 60
		seconds := strconv.FormatFloat(math.Mod(deg*3600, 60), 'f', dp, 64)
		if parsed, _ := strconv.ParseFloat(seconds, 64); parsed == 60 {
			seconds = strconv.FormatFloat(0, 'f', dp, 64)
			minutes++
		}
		if minutes == 60 {
			minutes = 0
			degrees++
		}
		return fmt.Sprintf("%03d°%s%02d′%s%s″", int(degrees), DMSSeparator, minutes, DMSSeparator,
			padTwo(seconds)), true
	default:
		degrees := strconv.FormatFloat(deg, 'f', dp, 64)
		parsed, _ := strconv.ParseFloat(degrees, 64)
		if parsed < 100 {
			degrees = "0" + degrees
		}
		if parsed < 10 {
			degrees = "0" + degrees
		}
		return degrees + "°", true
	}
}

// FormatLat renders a latitude with two-digit degrees and an N/S suffix.
func FormatLat(deg float64, format DMSFormat, dp int) string {
	deg = Wrap90(deg)
	lat, ok := FormatDMS(deg, format, dp)
	if !ok {
		return InvalidDMS
	}
	suffix := "N"
	if deg < 0 {
		suffix = "S"
	}
	return lat[1:] + DMSSeparator + suffix
}

// FormatLon renders a longitude with three-digit degrees and an E/W suffix.
func FormatLon(deg float64, format DMSFormat, dp int) string {
	deg = Wrap180(deg)
	lon, ok := FormatDMS(deg, format, dp)
	if !ok {
		return InvalidDMS
	}
	suffix := "E"
	if deg < 0 {
		suffix = "W"
	}
	return lon + DMSSeparator + suffix
}

// FormatBearing renders a bearing normalised to [0,360).
func FormatBearing(deg float64, format DMSFormat, dp int) string {
	brng, ok := FormatDMS(Wrap360(deg), format, dp)
	if !ok {
		return InvalidDMS
	}
	// rounding up may produce 360°
	return strings.Replace(brng, "360", "0", 1)
}

// CompassPoint returns the compass point of a bearing. A precision of 1 yields the cardinal points,
// 2 the intercardinal and 3 the secondary-intercardinal points.
func CompassPoint(bearing float64, precision int) (string, error) {
	if precision < 1 || precision > 3 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrecision, precision)
	}
	if math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return "", fmt.Errorf("%w: bearing %g", ErrInvalidDMS, bearing)
	}
	points := 4 << (precision - 1)
	index := int(math.Round(Wrap360(bearing)*float64(points)/360)) % points
	return cardinals[index*16/points], nil
}

// padTwo left-pads a formatted number to two integer digits.
func padTwo(number string) string {
	if parsed, _ := strconv.ParseFloat(number, 64); parsed < 10 {
		return "0" + number
	}
	return number
}
