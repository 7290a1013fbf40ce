// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpspoll implements a minimal gpsd client that reads a single fix from a gpsd-compatible
// feed.
package gpspoll

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/vartype"
)

const (
	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
	watchTimeout          = time.Second * 2

	// msToKmh converts meters per second to kilometers per hour
	msToKmh = 3.6
)

// ErrNoTPV is returned if the feed closed the connection before sending a TPV report.
var ErrNoTPV = errors.New("no TPV response received from gpsd")

// Client is a minimal GPSd client
type Client struct {
	Addr string
}

// Fix represents a single GPS fix from gpsd.
type Fix struct {
	Device string
	Time   time.Time
	Lat    float64
	Lon    float64
	Alt    float64
	Acc    float64
	// Track is the course over ground in degrees from true north
	Track float64
	// Speed over ground in m/s
	Speed float64
	Mode  int
}

// tpvResponse matches the subset of gpsd's TPV report we care about.
type tpvResponse struct {
	Class  string    `json:"class"`
	Device string    `json:"device"`
	Time   time.Time `json:"time"`
	Lat    float64   `json:"lat"`
	Lon    float64   `json:"lon"`
	Alt    float64   `json:"alt"`
	Track  float64   `json:"track"`
	Speed  float64   `json:"speed"`
	Mode   int       `json:"mode"`
	Epx    float64   `json:"epx"`
	Epy    float64   `json:"epy"`
	Eph    float64   `json:"eph"`
	Epv    float64   `json:"epv"`
}

// New constructs a new Client for the given host and port.
func New(host, port string) *Client {
	return &Client{
		Addr: net.JoinHostPort(host, port),
	}
}

// Poll connects to gpsd, enables watch mode and returns the first TPV report received. The
// connection is closed before returning.
func (c *Client) Poll(ctx context.Context) (Fix, error) {
	var zero Fix

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return zero, fmt.Errorf("gpspoll: dial gpsd: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// Respect context deadline if present, otherwise we add a safety net so we don't hang
	// forever if ctx has no deadline.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(watchTimeout))
	}

	if _, err = fmt.Fprint(conn, `?WATCH={"enable":true,"json":true}`+"\n"); err != nil {
		return zero, fmt.Errorf("gpspoll: write WATCH: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		var resp tpvResponse
		if err = json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		if resp.Class != "TPV" {
			continue
		}

		return Fix{
			Device: resp.Device,
			Time:   resp.Time,
			Lat:    resp.Lat,
			Lon:    resp.Lon,
			Alt:    resp.Alt,
			Acc:    horizontalAccuracyMeters(resp),
			Track:  resp.Track,
			Speed:  resp.Speed,
			Mode:   resp.Mode,
		}, nil
	}

	if err = scanner.Err(); err != nil {
		return zero, fmt.Errorf("failed to scan GPSd response: %w", err)
	}
	return zero, ErrNoTPV
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= 2
}

// Coordinate converts the fix into a geolocation coordinate. Speed is converted to km/h, the
// altitude is only set for a 3D fix.
func (f Fix) Coordinate() geobus.Coordinate {
	coord := geobus.Coordinate{
		Latitude:  f.Lat,
		Longitude: f.Lon,
		Accuracy:  f.Acc,
		Speed:     vartype.NewVariable(f.Speed * msToKmh),
		Heading:   vartype.NewVariable(f.Track),
	}
	if f.Mode >= 3 {
		coord.Altitude = vartype.NewVariable(f.Alt)
	}
	return coord
}

func horizontalAccuracyMeters(tpv tpvResponse) float64 {
	switch {
	case tpv.Eph > 0:
		return tpv.Eph
	case tpv.Epx > 0 && tpv.Epy > 0:
		// sqrt(epx² + epy²)
		return math.Hypot(tpv.Epx, tpv.Epy)
	default:
		return horizontalAccuracyFallback(tpv)
	}
}

func horizontalAccuracyFallback(tpv tpvResponse) float64 {
	switch tpv.Mode {
	case 3:
		return fallbackAccuracy3DFix
	case 2:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}
