// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/geosim/internal/geodesy"
	"github.com/wneessen/geosim/internal/gpspoll"
)

const pollTimeout = time.Second * 5

// ErrFeedClosed is returned if the gpsd feed ended the watch.
var ErrFeedClosed = errors.New("gpsd feed closed the connection")

// poll prints the first fix of the feed at addr.
func poll(ctx context.Context, addr string, out io.Writer) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid feed address: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	fix, err := gpspoll.New(host, port).Poll(ctx)
	if err != nil {
		return err
	}
	coord := fix.Coordinate()
	_, err = fmt.Fprintf(out, "%s %s, %s accuracy=%.1fm speed=%.1fkm/h heading=%.0f°\n",
		fix.Time.Format(time.RFC3339), geodesy.FormatLat(coord.Latitude, geodesy.FormatDegMinSec, 2),
		geodesy.FormatLon(coord.Longitude, geodesy.FormatDegMinSec, 2), coord.Accuracy, coord.Speed.Value(), coord.Heading.Value())
	return err
}

// watch prints every TPV report of the feed at addr until the context is canceled or the feed
// closes the connection.
func watch(ctx context.Context, addr string, out io.Writer) error {
	session, err := gpsd.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to dial gpsd feed: %w", err)
	}
	session.AddFilter("TPV", func(r interface{}) {
		report, ok := r.(*gpsd.TPVReport)
		if !ok || report.Mode < gpsd.Mode2D {
			return
		}
		_, _ = fmt.Fprintf(out, "%v %.6f,%.6f speed=%.1fm/s track=%.0f°\n", report.Time,
			report.Lat, report.Lon, report.Speed, report.Track)
	})
	done := session.Watch()

	select {
	case <-ctx.Done():
		return nil
	case <-done:
		return ErrFeedClosed
	}
}
