// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package hud renders the dashboard telemetry of a simulation snapshot into waybar JSON.
package hud

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/vorlif/humanize"
	"github.com/vorlif/spreak"
	"github.com/wneessen/go-moonphase"

	"github.com/wneessen/geosim/internal/config"
	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/i18n"
)

const (
	OutputClass   = "geosim"
	DamagedClass  = "damaged"
	MovingClass   = "moving"
	StandingClass = "standing"

	compassPrecision = 2
	dmsPrecision     = 0
)

// TemplateContext holds the values available to the dashboard templates.
type TemplateContext struct {
	Latitude     float64
	Longitude    float64
	LatitudeDMS  string
	LongitudeDMS string
	Accuracy     float64

	Heading              float64
	HeadingDMS           string
	Compass              string
	CompassIcon          string
	CompassIconWithSpace string

	SpeedKmh   float64
	Gear       string
	GearName   string
	GasPercent float64
	Damage     uint
	Damaged    bool
	Moving     bool
	Tick       uint64
	Distance   float64

	UpdateTime             time.Time
	SunriseTime            time.Time
	SunsetTime             time.Time
	IsDaytime              bool
	Headlights             bool
	MoonPhase              string
	MoonPhaseIcon          string
	MoonPhaseIconWithSpace string
}

// Output is a single line of waybar custom module JSON.
type Output struct {
	Text    string   `json:"text"`
	Tooltip string   `json:"tooltip"`
	Classes []string `json:"class"`
}

type Presenter struct {
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	text      *template.Template
	tooltip   *template.Template
}

// New parses the dashboard templates of the config. Templates that fail to render an empty
// context are rejected.
func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	humanizer, err := i18n.NewHumanizer(loc)
	if err != nil {
		return nil, err
	}
	pres := &Presenter{localizer: loc, humanizer: humanizer}

	pres.text, err = template.New("text").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	pres.tooltip, err = template.New("tooltip").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Tooltip)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tooltip template: %w", err)
	}

	if _, err = pres.Render(TemplateContext{}); err != nil {
		return nil, err
	}
	return pres, nil
}

// BuildContext derives the dashboard values from a snapshot. Daylight and moon phase are
// computed for the simulated position at the time of the snapshot.
func (p *Presenter) BuildContext(snapshot geobus.Snapshot) TemplateContext {
	coord := snapshot.Coordinate
	mov := snapshot.Movement
	heading := coord.Heading.ValueOr(0)

	tplCtx := TemplateContext{
		Latitude:     coord.Latitude,
		Longitude:    coord.Longitude,
		LatitudeDMS:  geodesy.FormatLat(coord.Latitude, geodesy.FormatDegMinSec, dmsPrecision),
		LongitudeDMS: geodesy.FormatLon(coord.Longitude, geodesy.FormatDegMinSec, dmsPrecision),
		Accuracy:     coord.Accuracy,
		Heading:      heading,
		HeadingDMS:   geodesy.FormatBearing(heading, geodesy.FormatDeg, dmsPrecision),
		SpeedKmh:     mov.SpeedKmh,
		Gear:         gearLabel(mov.Gear),
		GearName:     p.gearName(mov.Gear),
		GasPercent:   mov.Gas * 100,
		Damage:       mov.Damage,
		Damaged:      mov.Damage > 0,
		Moving:       mov.SpeedKmh > 0,
		Tick:         snapshot.Tick,
		Distance:     snapshot.Distance,
		UpdateTime:   snapshot.At,
	}
	if compass, err := geodesy.CompassPoint(heading, compassPrecision); err == nil {
		tplCtx.Compass = compass
		tplCtx.CompassIcon = CompassIcon[compass]
		tplCtx.CompassIconWithSpace = EmojiWithSpace(tplCtx.CompassIcon)
	}

	at := snapshot.At
	if at.IsZero() {
		at = time.Now()
	}
	utc := at.UTC()
	tplCtx.SunriseTime, tplCtx.SunsetTime = sunrise.SunriseSunset(coord.Latitude, coord.Longitude,
		utc.Year(), utc.Month(), utc.Day())
	if at.After(tplCtx.SunriseTime) && at.Before(tplCtx.SunsetTime) {
		tplCtx.IsDaytime = true
	}
	tplCtx.Headlights = !tplCtx.IsDaytime

	moon := moonphase.New(at)
	tplCtx.MoonPhase = moon.PhaseName()
	tplCtx.MoonPhaseIcon = MoonPhaseIcon[tplCtx.MoonPhase]
	tplCtx.MoonPhaseIconWithSpace = EmojiWithSpace(tplCtx.MoonPhaseIcon)

	return tplCtx
}

// Render executes the text and tooltip templates against the context.
func (p *Presenter) Render(tplCtx TemplateContext) (Output, error) {
	textBuf := bytes.NewBuffer(nil)
	if err := p.text.Execute(textBuf, tplCtx); err != nil {
		return Output{}, fmt.Errorf("failed to render text template: %w", err)
	}
	tooltipBuf := bytes.NewBuffer(nil)
	if err := p.tooltip.Execute(tooltipBuf, tplCtx); err != nil {
		return Output{}, fmt.Errorf("failed to render tooltip template: %w", err)
	}
	return Output{
		Text:    textBuf.String(),
		Tooltip: tooltipBuf.String(),
		Classes: []string{OutputClass, stateClass(tplCtx)},
	}, nil
}

func (p *Presenter) gearName(gear int) string {
	switch {
	case gear < 0:
		return p.loc("reverse")
	case gear == 0:
		return p.loc("neutral")
	default:
		return strconv.Itoa(gear)
	}
}

func gearLabel(gear int) string {
	switch {
	case gear < 0:
		return "R"
	case gear == 0:
		return "N"
	default:
		return strconv.Itoa(gear)
	}
}

func stateClass(tplCtx TemplateContext) string {
	switch {
	case tplCtx.Damaged:
		return DamagedClass
	case tplCtx.Moving:
		return MovingClass
	default:
		return StandingClass
	}
}
