// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package feed

import (
	"encoding/json"
	"time"

	"github.com/wneessen/geosim/internal/geobus"
)

const (
	protoMajor = 3
	protoMinor = 14

	mode2D = 2
	mode3D = 3

	// kmhPerMs is the number of km/h in one m/s
	kmhPerMs = 3.6
)

// version is the banner sent to every client on connect.
type version struct {
	Class      string `json:"class"`
	Release    string `json:"release"`
	Rev        string `json:"rev"`
	ProtoMajor int    `json:"proto_major"`
	ProtoMinor int    `json:"proto_minor"`
}

// tpv is a gpsd time-position-velocity report.
type tpv struct {
	Class  string   `json:"class"`
	Device string   `json:"device"`
	Mode   int      `json:"mode"`
	Time   string   `json:"time"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Alt    *float64 `json:"alt,omitempty"`
	Track  *float64 `json:"track,omitempty"`
	Speed  *float64 `json:"speed,omitempty"`
	Eph    float64  `json:"eph"`
}

func versionLine(release string) ([]byte, error) {
	return encodeLine(version{
		Class:      "VERSION",
		Release:    release,
		Rev:        release,
		ProtoMajor: protoMajor,
		ProtoMinor: protoMinor,
	})
}

// tpvLine encodes a snapshot as a newline terminated TPV report.
func tpvLine(device string, snapshot geobus.Snapshot) ([]byte, error) {
	coord := snapshot.Coordinate
	report := tpv{
		Class:  "TPV",
		Device: device,
		Mode:   mode2D,
		Time:   snapshot.At.UTC().Format(time.RFC3339Nano),
		Lat:    coord.Latitude,
		Lon:    coord.Longitude,
		Alt:    coord.Altitude.Ptr(),
		Track:  coord.Heading.Ptr(),
		Eph:    coord.Accuracy,
	}
	if coord.Altitude.IsSet() {
		report.Mode = mode3D
	}
	if coord.Speed.IsSet() {
		speed := coord.Speed.Value() / kmhPerMs
		report.Speed = &speed
	}
	return encodeLine(report)
}

func encodeLine(v any) ([]byte, error) {
	line, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}
