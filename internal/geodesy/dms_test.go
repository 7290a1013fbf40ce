// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geodesy

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestParseDMS(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"decimal", "51.4778", 51.4778},
		{"negative decimal", " -0.0015 ", -0.0015},
		{"deg min sec north", "51° 28′ 40.37″ N", 51.47788056},
		{"deg min sec west", "000° 00′ 05.29″ W", -0.00146944},
		{"deg min", "51°28.67′", 51.47783333},
		{"deg only with cardinal", "51.4778°S", -51.4778},
		{"leading minus", "-51 28 40", -51.47777778},
		{"lowercase cardinal", "0 0 5.29 w", -0.00146944},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDMS(tc.value)
			if err != nil {
				t.Fatalf("failed to parse %q: %s", tc.value, err)
			}
			if !scalar.EqualWithinAbs(got, tc.want, 1e-8) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
	t.Run("invalid values fail", func(t *testing.T) {
		for _, value := range []string{"", "N", "1 2 3 4", "abc", "Inf", "NaN"} {
			if _, err := ParseDMS(value); !errors.Is(err, ErrInvalidDMS) {
				t.Errorf("expected error for %q to be %s, got %v", value, ErrInvalidDMS, err)
			}
		}
	})
}

func TestFormatDMS(t *testing.T) {
	tests := []struct {
		name   string
		deg    float64
		format DMSFormat
		dp     int
		want   string
	}{
		{"degrees default precision", 51.4778, FormatDeg, DefaultPrecision, "051.4778°"},
		{"degrees single digit", 3.5, FormatDeg, 1, "003.5°"},
		{"degrees three digits", 123.456, FormatDeg, 2, "123.46°"},
		{"degrees unknown format", 1, DMSFormat("x"), DefaultPrecision, "001.0000°"},
		{"degrees minutes", 51.4778, FormatDegMin, DefaultPrecision, "051° 28.67′"},
		{"degrees minutes rounding up", 51.99999, FormatDegMin, 1, "052° 00.0′"},
		{"degrees minutes seconds", 51.4778, FormatDegMinSec, DefaultPrecision, "051° 28′ 40″"},
		{"degrees minutes seconds rounding up", 1.9999999, FormatDegMinSec, 0, "002° 00′ 00″"},
		{"negative value renders absolute", -0.0014694, FormatDegMinSec, 2, "000° 00′ 05.29″"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FormatDMS(tc.deg, tc.format, tc.dp)
			if !ok {
				t.Fatal("expected formatting to succeed")
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
	t.Run("non-finite values fail", func(t *testing.T) {
		for _, deg := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			if _, ok := FormatDMS(deg, FormatDeg, 2); ok {
				t.Errorf("expected formatting of %v to fail", deg)
			}
		}
	})
}

func TestFormatLatLonBearing(t *testing.T) {
	t.Run("latitude", func(t *testing.T) {
		if got := FormatLat(51.4778, FormatDegMinSec, 0); got != "51° 28′ 40″ N" {
			t.Errorf("unexpected latitude: %q", got)
		}
		if got := FormatLat(-37.5, FormatDeg, 1); got != "37.5° S" {
			t.Errorf("unexpected latitude: %q", got)
		}
		if got := FormatLat(math.NaN(), FormatDeg, 1); got != InvalidDMS {
			t.Errorf("expected %q, got %q", InvalidDMS, got)
		}
	})
	t.Run("longitude", func(t *testing.T) {
		if got := FormatLon(-0.0014694, FormatDegMinSec, 2); got != "000° 00′ 05.29″ W" {
			t.Errorf("unexpected longitude: %q", got)
		}
		if got := FormatLon(190, FormatDeg, 0); got != "170° W" {
			t.Errorf("unexpected longitude: %q", got)
		}
		if got := FormatLon(math.Inf(1), FormatDeg, 1); got != InvalidDMS {
			t.Errorf("expected %q, got %q", InvalidDMS, got)
		}
	})
	t.Run("bearing", func(t *testing.T) {
		if got := FormatBearing(-3.62, FormatDegMinSec, 0); got != "356° 22′ 48″" {
			t.Errorf("unexpected bearing: %q", got)
		}
		if got := FormatBearing(359.99999, FormatDeg, 0); got != "0°" {
			t.Errorf("unexpected bearing: %q", got)
		}
		if got := FormatBearing(math.NaN(), FormatDeg, 1); got != InvalidDMS {
			t.Errorf("expected %q, got %q", InvalidDMS, got)
		}
	})
}

func TestCompassPoint(t *testing.T) {
	tests := []struct {
		bearing   float64
		precision int
		want      string
	}{
		{24, 3, "NNE"}, {24, 2, "NE"}, {24, 1, "N"},
		{0, 3, "N"}, {359, 3, "N"}, {-1, 1, "N"}, {90, 1, "E"}, {180, 2, "S"}, {225, 2, "SW"},
		{270, 3, "W"}, {292.5, 3, "WNW"}, {316.86816, 2, "NW"},
	}
	for _, tc := range tests {
		got, err := CompassPoint(tc.bearing, tc.precision)
		if err != nil {
			t.Fatalf("failed to get compass point: %s", err)
		}
		if got != tc.want {
			t.Errorf("CompassPoint(%v, %d): expected %s, got %s", tc.bearing, tc.precision, tc.want, got)
		}
	}
	t.Run("invalid precision", func(t *testing.T) {
		for _, precision := range []int{0, 4, -1} {
			if _, err := CompassPoint(10, precision); !errors.Is(err, ErrInvalidPrecision) {
				t.Errorf("expected error to be %s, got %v", ErrInvalidPrecision, err)
			}
		}
	})
	t.Run("non-finite bearing", func(t *testing.T) {
		if _, err := CompassPoint(math.NaN(), 1); err == nil {
			t.Error("expected error for NaN bearing")
		}
	})
}
