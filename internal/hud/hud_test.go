// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package hud

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vorlif/spreak"

	"github.com/wneessen/geosim/internal/config"
	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/i18n"
	"github.com/wneessen/geosim/internal/vartype"
)

var (
	summerNoon  = time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	winterNight = time.Date(2026, 12, 21, 23, 0, 0, 0, time.UTC)
)

func testConfLang(t *testing.T, locale string) (*config.Config, *spreak.Localizer) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to load config: %s", err)
	}
	lang, err := i18n.New(locale)
	if err != nil {
		t.Fatalf("failed to create localizer: %s", err)
	}
	return conf, lang
}

func testSnapshot(at time.Time, gear int, speed float64, damage uint) geobus.Snapshot {
	return geobus.Snapshot{
		Coordinate: geobus.Coordinate{
			Latitude:  52.52,
			Longitude: 13.405,
			Accuracy:  5,
			Heading:   vartype.NewVariable(45.0),
			Speed:     vartype.NewVariable(speed),
		},
		Movement: geobus.Movement{Gear: gear, Gas: 0.25, Damage: damage, SpeedKmh: speed},
		Tick:     7,
		Distance: 6.5,
		At:       at,
	}
}

func TestNew(t *testing.T) {
	t.Run("creating a new presenter succeeds", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if pres == nil {
			t.Fatal("expected presenter to be non-nil")
		}
	})
	t.Run("creating presenter with invalid templates fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"text", func(conf *config.Config) { conf.Templates.Text = "{{invalid" }},
			{"tooltip", func(conf *config.Config) { conf.Templates.Tooltip = "{{invalid" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t, "en")
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to parse"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
	t.Run("creating presenter with template execution errors fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"text", func(conf *config.Config) { conf.Templates.Text = "{{.Data}}" }},
			{"tooltip", func(conf *config.Config) { conf.Templates.Tooltip = "{{.Data}}" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t, "en")
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to render"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
}

func TestPresenter_BuildContext(t *testing.T) {
	conf, lang := testConfLang(t, "en")
	pres, err := New(conf, lang)
	if err != nil {
		t.Fatalf("failed to create presenter: %s", err)
	}

	t.Run("building context at summer noon", func(t *testing.T) {
		tplCtx := pres.BuildContext(testSnapshot(summerNoon, 2, 36, 0))
		if tplCtx.Compass != "NE" {
			t.Errorf("expected compass point NE, got %q", tplCtx.Compass)
		}
		if tplCtx.CompassIcon != CompassIcon["NE"] {
			t.Errorf("expected compass icon %q, got %q", CompassIcon["NE"], tplCtx.CompassIcon)
		}
		if tplCtx.Gear != "2" || tplCtx.GearName != "2" {
			t.Errorf("expected gear 2, got %q (%q)", tplCtx.Gear, tplCtx.GearName)
		}
		if tplCtx.GasPercent != 25 {
			t.Errorf("expected gas at 25%%, got %f", tplCtx.GasPercent)
		}
		if !tplCtx.Moving || tplCtx.Damaged {
			t.Errorf("expected a moving undamaged vehicle, got moving=%t damaged=%t", tplCtx.Moving,
				tplCtx.Damaged)
		}
		if !tplCtx.IsDaytime || tplCtx.Headlights {
			t.Errorf("expected daylight without headlights, got daytime=%t headlights=%t", tplCtx.IsDaytime,
				tplCtx.Headlights)
		}
		if !tplCtx.SunriseTime.Before(summerNoon) || !tplCtx.SunsetTime.After(summerNoon) {
			t.Errorf("expected noon between sunrise %s and sunset %s", tplCtx.SunriseTime, tplCtx.SunsetTime)
		}
		if !tplCtx.UpdateTime.Equal(summerNoon) {
			t.Errorf("expected update time %s, got %s", summerNoon, tplCtx.UpdateTime)
		}
		if tplCtx.MoonPhase == "" {
			t.Error("expected moon phase to be set")
		}
		if tplCtx.MoonPhaseIcon != MoonPhaseIcon[tplCtx.MoonPhase] {
			t.Errorf("expected moon phase icon for %q, got %q", tplCtx.MoonPhase, tplCtx.MoonPhaseIcon)
		}
		if !strings.HasPrefix(tplCtx.LatitudeDMS, "52°") || !strings.HasSuffix(tplCtx.LatitudeDMS, "N") {
			t.Errorf("unexpected latitude DMS: %q", tplCtx.LatitudeDMS)
		}
		if !strings.HasSuffix(tplCtx.LongitudeDMS, "E") {
			t.Errorf("unexpected longitude DMS: %q", tplCtx.LongitudeDMS)
		}
		if tplCtx.Tick != 7 || tplCtx.Distance != 6.5 {
			t.Errorf("expected tick 7 and distance 6.5, got %d and %f", tplCtx.Tick, tplCtx.Distance)
		}
	})
	t.Run("headlights are on at night", func(t *testing.T) {
		tplCtx := pres.BuildContext(testSnapshot(winterNight, 0, 0, 0))
		if tplCtx.IsDaytime || !tplCtx.Headlights {
			t.Errorf("expected night with headlights, got daytime=%t headlights=%t", tplCtx.IsDaytime,
				tplCtx.Headlights)
		}
	})
	t.Run("gear labels", func(t *testing.T) {
		tests := []struct {
			gear     int
			wantGear string
			wantName string
		}{
			{-1, "R", "Reverse"},
			{0, "N", "Neutral"},
			{6, "6", "6"},
		}
		for _, tc := range tests {
			t.Run(tc.wantGear, func(t *testing.T) {
				tplCtx := pres.BuildContext(testSnapshot(summerNoon, tc.gear, 0, 0))
				if tplCtx.Gear != tc.wantGear {
					t.Errorf("expected gear label %q, got %q", tc.wantGear, tplCtx.Gear)
				}
				if tplCtx.GearName != tc.wantName {
					t.Errorf("expected gear name %q, got %q", tc.wantName, tplCtx.GearName)
				}
			})
		}
	})
}

func TestPresenter_Render(t *testing.T) {
	t.Run("output classes follow the vehicle state", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		tests := []struct {
			name     string
			snapshot geobus.Snapshot
			want     []string
		}{
			{"standing", testSnapshot(summerNoon, 0, 0, 0), []string{OutputClass, StandingClass}},
			{"moving", testSnapshot(summerNoon, 1, 12, 0), []string{OutputClass, MovingClass}},
			{"damaged", testSnapshot(summerNoon, 1, 12, 1), []string{OutputClass, DamagedClass}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				output, err := pres.Render(pres.BuildContext(tc.snapshot))
				if err != nil {
					t.Fatalf("failed to render: %s", err)
				}
				if diff := cmp.Diff(tc.want, output.Classes); diff != "" {
					t.Errorf("unexpected classes (-want +got):\n%s", diff)
				}
			})
		}
	})
	t.Run("templates are rendered with the functions", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		conf.Templates.Text = `{{floatFormat .SpeedKmh 0}} {{uc .Compass}} {{lc .Gear}}`
		conf.Templates.Tooltip = `{{loc "speed"}} {{timeFormat .UpdateTime "15:04"}}`
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		output, err := pres.Render(pres.BuildContext(testSnapshot(summerNoon, -1, 12.99, 0)))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if output.Text != "12 NE r" {
			t.Errorf("expected text %q, got %q", "12 NE r", output.Text)
		}
		if output.Tooltip != "Speed 12:00" {
			t.Errorf("expected tooltip %q, got %q", "Speed 12:00", output.Tooltip)
		}
	})
	t.Run("labels are localized", func(t *testing.T) {
		conf, lang := testConfLang(t, "de")
		conf.Templates.Tooltip = `{{loc "speed"}}/{{loc "Full Moon"}}/{{loc "unknown"}}`
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		output, err := pres.Render(pres.BuildContext(testSnapshot(summerNoon, 0, 0, 0)))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if output.Tooltip != "Geschwindigkeit/Vollmond/unknown" {
			t.Errorf("unexpected localized tooltip: %q", output.Tooltip)
		}
	})
	t.Run("output encodes as waybar JSON", func(t *testing.T) {
		data, err := json.Marshal(Output{Text: "a", Tooltip: "b", Classes: []string{OutputClass}})
		if err != nil {
			t.Fatalf("failed to encode output: %s", err)
		}
		want := `{"text":"a","tooltip":"b","class":["geosim"]}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})
}

func TestEmojiWithSpace(t *testing.T) {
	if got := EmojiWithSpace(""); got != "" {
		t.Errorf("expected empty string for empty emoji, got %q", got)
	}
	if got := EmojiWithSpace("🌕"); !strings.HasPrefix(got, "🌕 ") {
		t.Errorf("expected padded emoji, got %q", got)
	}
}
