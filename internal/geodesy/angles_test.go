// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geodesy

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestWrap360(t *testing.T) {
	tests := []struct {
		deg  float64
		want float64
	}{
		{0, 0}, {90, 90}, {359, 359}, {360, 0}, {361, 1}, {-1, 359}, {-360, 0}, {-721, 359}, {720, 0},
	}
	for _, tc := range tests {
		if got := Wrap360(tc.deg); got != tc.want {
			t.Errorf("Wrap360(%v): expected %v, got %v", tc.deg, tc.want, got)
		}
	}
	t.Run("every integer degree is normalised and idempotent", func(t *testing.T) {
		for deg := -1080; deg <= 1080; deg++ {
			wrapped := Wrap360(float64(deg))
			if wrapped < 0 || wrapped >= 360 {
				t.Fatalf("Wrap360(%d) out of range: %v", deg, wrapped)
			}
			if again := Wrap360(wrapped); again != wrapped {
				t.Fatalf("Wrap360 not idempotent for %d: %v != %v", deg, again, wrapped)
			}
		}
	})
	t.Run("tiny negative values", func(t *testing.T) {
		if got := Wrap360(-1e-15); got < 0 || got >= 360 {
			t.Errorf("expected value in range, got %v", got)
		}
	})
}

func TestWrap180(t *testing.T) {
	tests := []struct {
		deg  float64
		want float64
	}{
		{0, 0}, {180, 180}, {-180, 180}, {181, -179}, {-181, 179}, {360, 0}, {540, 180}, {-539, -179},
	}
	for _, tc := range tests {
		if got := Wrap180(tc.deg); got != tc.want {
			t.Errorf("Wrap180(%v): expected %v, got %v", tc.deg, tc.want, got)
		}
	}
}

func TestWrap90(t *testing.T) {
	tests := []struct {
		deg  float64
		want float64
	}{
		{0, 0}, {90, 90}, {-90, -90}, {91, 89}, {-91, -89}, {180, 0}, {270, -90}, {-270, 90}, {360, 0},
	}
	for _, tc := range tests {
		if got := Wrap90(tc.deg); got != tc.want {
			t.Errorf("Wrap90(%v): expected %v, got %v", tc.deg, tc.want, got)
		}
	}
}

func TestConversions(t *testing.T) {
	if got := ToRadians(180); !scalar.EqualWithinAbs(got, math.Pi, 1e-15) {
		t.Errorf("expected π, got %v", got)
	}
	if got := ToDegrees(math.Pi / 2); !scalar.EqualWithinAbs(got, 90, 1e-12) {
		t.Errorf("expected 90, got %v", got)
	}
}
