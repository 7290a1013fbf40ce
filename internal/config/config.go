// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv         = "GEOSIM"
	DefaultTextTpl    = "{{.CompassIcon}} {{floatFormat .SpeedKmh 0}} km/h {{.Gear}}"
	DefaultTooltipTpl = "{{loc \"position\"}}: {{.LatitudeDMS}}, {{.LongitudeDMS}}\n" +
		"{{loc \"heading\"}}: {{.HeadingDMS}} ({{.Compass}})\n" +
		"{{loc \"speed\"}}: {{floatFormat .SpeedKmh 1}} km/h\n" +
		"{{loc \"gear\"}}: {{.GearName}} / {{loc \"gas\"}}: {{floatFormat .GasPercent 0}}%\n" +
		"{{loc \"damage\"}}: {{.Damage}}\n" +
		"{{loc \"sunrise\"}}: {{localizedTime .SunriseTime}} / {{loc \"sunset\"}}: {{localizedTime .SunsetTime}}\n" +
		"{{loc \"headlights\"}}: {{if .Headlights}}{{loc \"on\"}}{{else}}{{loc \"off\"}}{{end}}\n" +
		"{{loc \"moonphase\"}}: {{.MoonPhaseIconWithSpace}}{{loc .MoonPhase}}\n" +
		"{{loc \"updated\"}}: {{localizedTime .UpdateTime}}"

	// gearCount is the number of gears of the movement model: reverse, neutral and six forward gears
	gearCount = 8
)

var (
	// ErrInvalidMovement is returned if the movement parameters are out of range.
	ErrInvalidMovement = errors.New("invalid movement configuration")

	// ErrInvalidSimulation is returned if the simulation settings are out of range.
	ErrInvalidSimulation = errors.New("invalid simulation configuration")
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Simulation struct {
		Tracking        bool          `fig:"tracking" default:"true"`
		TickInterval    time.Duration `fig:"tick_interval" default:"1s"`
		StartDelay      time.Duration `fig:"start_delay" default:"0s"`
		Accuracy        float64       `fig:"accuracy" default:"5"`
		TrackingOptions struct {
			HighAccuracy bool          `fig:"high_accuracy" default:"true"`
			Timeout      time.Duration `fig:"timeout" default:"5s"`
			MaxAge       time.Duration `fig:"max_age" default:"0s"`
		} `fig:"tracking_options"`
	} `fig:"simulation"`

	Start struct {
		Latitude  float64 `fig:"latitude" default:"55.75340586267649"`
		Longitude float64 `fig:"longitude" default:"37.61910754845215"`
		Heading   float64 `fig:"heading" default:"0"`
		// File is a geolocation file to read the start position from
		File string `fig:"file"`
	} `fig:"start"`

	Movement struct {
		MaxThrottle                   float64   `fig:"max_throttle" default:"7000"`
		MinThrottleOnGear             float64   `fig:"min_throttle_on_gear" default:"90"`
		ThrottleStepOnDrive           float64   `fig:"throttle_step_on_drive" default:"10"`
		ThrottleDecrementStopping     float64   `fig:"throttle_decrement_stopping" default:"100"`
		AutoRotationDecrementForward  float64   `fig:"auto_rotation_decrement_forward" default:"10"`
		AutoRotationDecrementBackward float64   `fig:"auto_rotation_decrement_backward" default:"5"`
		MaxRotationAngle              float64   `fig:"max_rotation_angle" default:"45"`
		OneDirectRotationMeters       float64   `fig:"one_direct_rotation_meters" default:"6"`
		DamageThrottle                float64   `fig:"damage_throttle" default:"200"`
		GearCoefficients              []float64 `fig:"gear_coefficients" default:"[-1,0,1,1.5,2,2.5,3,3.5]"`
	} `fig:"movement"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"1s"`
	} `fig:"intervals"`

	Templates struct {
		Text    string `fig:"text"`
		Tooltip string `fig:"tooltip"`
	} `fig:"templates"`

	Feed struct {
		Disable bool   `fig:"disable"`
		Address string `fig:"address" default:"127.0.0.1:2948"`
	} `fig:"feed"`

	GeolocationFile struct {
		Disable bool   `fig:"disable" default:"true"`
		Path    string `fig:"path"`
	} `fig:"geolocation_file"`

	Metrics struct {
		// Address of the /metrics endpoint, empty disables it
		Address string `fig:"address"`
	} `fig:"metrics"`

	Controls struct {
		Disable bool `fig:"disable"`
	} `fig:"controls"`

	DisableResumeMonitor bool `fig:"disable_resume_monitor"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if err := c.validateSimulation(); err != nil {
		return err
	}
	if err := c.validateMovement(); err != nil {
		return err
	}
	if c.Intervals.Output <= 0 {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}
	if c.GeolocationFile.Path == "" {
		home, _ := os.UserHomeDir()
		c.GeolocationFile.Path = filepath.Join(home, ".config", "geosim", "geolocation")
	}

	return nil
}

func (c *Config) validateSimulation() error {
	sim := c.Simulation
	if sim.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidSimulation, sim.TickInterval)
	}
	if sim.StartDelay < 0 {
		return fmt.Errorf("%w: start delay must not be negative, got %s", ErrInvalidSimulation, sim.StartDelay)
	}
	if sim.Accuracy < 0 || math.IsNaN(sim.Accuracy) {
		return fmt.Errorf("%w: accuracy must not be negative, got %g", ErrInvalidSimulation, sim.Accuracy)
	}
	if c.Start.Latitude < -90 || c.Start.Latitude > 90 {
		return fmt.Errorf("%w: start latitude out of range: %g", ErrInvalidSimulation, c.Start.Latitude)
	}
	return nil
}

func (c *Config) validateMovement() error {
	mov := c.Movement
	if len(mov.GearCoefficients) != gearCount {
		return fmt.Errorf("%w: expected %d gear coefficients, got %d", ErrInvalidMovement, gearCount,
			len(mov.GearCoefficients))
	}
	for i := 1; i < len(mov.GearCoefficients); i++ {
		if mov.GearCoefficients[i] <= mov.GearCoefficients[i-1] {
			return fmt.Errorf("%w: gear coefficients must be strictly increasing", ErrInvalidMovement)
		}
	}
	if mov.MinThrottleOnGear <= 0 || mov.MinThrottleOnGear >= mov.MaxThrottle {
		return fmt.Errorf("%w: min throttle on gear must be between 0 and max throttle", ErrInvalidMovement)
	}
	for name, step := range map[string]float64{
		"throttle_step_on_drive":           mov.ThrottleStepOnDrive,
		"throttle_decrement_stopping":      mov.ThrottleDecrementStopping,
		"auto_rotation_decrement_forward":  mov.AutoRotationDecrementForward,
		"auto_rotation_decrement_backward": mov.AutoRotationDecrementBackward,
		"one_direct_rotation_meters":       mov.OneDirectRotationMeters,
		"damage_throttle":                  mov.DamageThrottle,
	} {
		if step <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidMovement, name, step)
		}
	}
	if mov.MaxRotationAngle <= 0 || mov.MaxRotationAngle > 180 {
		return fmt.Errorf("%w: max rotation angle must be in (0,180], got %g", ErrInvalidMovement,
			mov.MaxRotationAngle)
	}
	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
