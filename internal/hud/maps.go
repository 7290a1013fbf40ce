// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package hud

import "github.com/vorlif/spreak/localize"

// MoonPhaseIcon is a map where moon phase names are keys and their corresponding emoji representations are values.
var MoonPhaseIcon = map[string]string{
	"New Moon":        "🌑",
	"Waxing Crescent": "🌒",
	"First Quarter":   "🌓",
	"Waxing Gibbous":  "🌔",
	"Full Moon":       "🌕",
	"Waning Gibbous":  "🌖",
	"Third Quarter":   "🌗",
	"Waning Crescent": "🌘",
}

// CompassIcon maps the intercardinal compass points to arrows.
var CompassIcon = map[string]string{
	"N":  "⬆️",
	"NE": "↗️",
	"E":  "➡️",
	"SE": "↘️",
	"S":  "⬇️",
	"SW": "↙️",
	"W":  "⬅️",
	"NW": "↖️",
}

// i18nVars maps the lowercased template labels to their message IDs.
var i18nVars = map[string]localize.MsgID{
	"position":        "Position",
	"heading":         "Heading",
	"speed":           "Speed",
	"gear":            "Gear",
	"gas":             "Gas",
	"damage":          "Damage",
	"tick":            "Tick",
	"sunrise":         "Sunrise",
	"sunset":          "Sunset",
	"moonphase":       "Moon phase",
	"updated":         "Updated",
	"headlights":      "Headlights",
	"on":              "on",
	"off":             "off",
	"reverse":         "Reverse",
	"neutral":         "Neutral",
	"new moon":        "New moon",
	"waxing crescent": "Waxing crescent",
	"first quarter":   "First quarter",
	"waxing gibbous":  "Waxing gibbous",
	"full moon":       "Full moon",
	"waning gibbous":  "Waning gibbous",
	"third quarter":   "Third quarter",
	"waning crescent": "Waning crescent",
}
