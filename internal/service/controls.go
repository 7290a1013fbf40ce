// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/wneessen/geosim/internal/logger"
	"github.com/wneessen/geosim/internal/simulator"
)

// ErrUnknownControl is returned for a control line that is not part of the protocol.
var ErrUnknownControl = errors.New("unknown control")

// controlNames maps the held controls of the line protocol to the simulator controls.
var controlNames = map[string]simulator.Control{
	"accelerate": simulator.ControlAccelerate,
	"up":         simulator.ControlAccelerate,
	"brake":      simulator.ControlBrake,
	"down":       simulator.ControlBrake,
	"left":       simulator.ControlSteerLeft,
	"right":      simulator.ControlSteerRight,
}

// handleControls reads control lines from the input until it is closed or the context is
// canceled. Held controls are pressed with a leading + and released with a leading -,
// "collide" and "reset" are one-shot. "+track" starts tracking, "-track" ends the session.
func (s *Service) handleControls(ctx context.Context, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if err := s.applyControl(line); err != nil {
			s.logger.Warn("ignoring control", slog.String("line", line), logger.Err(err))
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("failed to read controls", logger.Err(err))
	}
}

// applyControl applies a single line of the control protocol. Empty lines are ignored.
func (s *Service) applyControl(line string) error {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "":
		return nil
	case "collide":
		s.simulator.Collide()
		s.logger.Debug("control applied", slog.String("control", line))
		return nil
	case "reset":
		s.simulator.Reset()
		s.logger.Debug("control applied", slog.String("control", line))
		return nil
	}

	var pressed bool
	switch line[0] {
	case '+':
		pressed = true
	case '-':
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, line)
	}
	name := line[1:]
	if name == "track" {
		return s.simulator.SetTracking(pressed)
	}
	control, ok := controlNames[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownControl, line)
	}
	s.simulator.SetIntent(control, pressed)
	s.logger.Debug("control applied", slog.String("control", name), slog.Bool("pressed", pressed))
	return nil
}
