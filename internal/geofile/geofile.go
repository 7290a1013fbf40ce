// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geofile reads and writes geolocation files. A geolocation file holds a single
// "lat,lon" line, lines starting with # are comments.
package geofile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/logger"
)

const (
	name     = "geolocation_file"
	fileMode = 0o644
	dirMode  = 0o755
)

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// Read reads the first valid coordinate from the geolocation file at path.
func Read(path string) (lat, lon float64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read geolocation file %q: %w", path, err)
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		coords := strings.Split(line, ",")
		if len(coords) != 2 {
			continue
		}
		lat, err = strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil || lat < -90 || lat > 90 {
			continue
		}
		lon, err = strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			continue
		}
		return lat, lon, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrNoCoordinates, path)
}

// Write atomically replaces the geolocation file at path with the position of the snapshot.
func Write(path string, snapshot geobus.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("failed to create geolocation file directory: %w", err)
	}

	buf := bytes.NewBuffer(nil)
	_, _ = fmt.Fprintf(buf, "# geosim position at tick %d, %s\n", snapshot.Tick,
		snapshot.At.UTC().Format(time.RFC3339))
	buf.WriteString(strconv.FormatFloat(snapshot.Coordinate.Latitude, 'f', -1, 64))
	buf.WriteByte(',')
	buf.WriteString(strconv.FormatFloat(snapshot.Coordinate.Longitude, 'f', -1, 64))
	buf.WriteByte('\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary geolocation file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err = tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary geolocation file: %w", err)
	}
	if err = tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set geolocation file permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary geolocation file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace geolocation file %q: %w", path, err)
	}
	return nil
}

// Writer is a geobus.Sink that keeps a geolocation file current with the simulated position.
type Writer struct {
	path   string
	logger *logger.Logger
}

// NewWriter returns a Writer for the geolocation file at path.
func NewWriter(path string, log *logger.Logger) (*Writer, error) {
	if log == nil {
		return nil, geobus.ErrLoggerRequired
	}
	if path == "" {
		return nil, errors.New("geolocation file path is required")
	}
	return &Writer{path: path, logger: log}, nil
}

// Name satisfies the geobus.Sink interface.
func (w *Writer) Name() string {
	return name
}

// Path returns the path of the geolocation file.
func (w *Writer) Path() string {
	return w.path
}

// Consume writes every position change to the geolocation file. Write failures are logged and
// the next position change is tried again.
func (w *Writer) Consume(ctx context.Context, events <-chan geobus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Kind != geobus.EventPositionChange {
				continue
			}
			if err := Write(w.path, event.Snapshot); err != nil {
				w.logger.Error("failed to write geolocation file", logger.Err(err),
					slog.String("path", w.path))
			}
		}
	}
}
