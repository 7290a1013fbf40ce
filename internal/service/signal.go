// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals prints the dashboard immediately on USR1 and logs the current position on USR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.outputJob.Trigger()
			case syscall.SIGUSR2:
				coord := s.simulator.Coordinate()
				mov := s.simulator.Movement()
				s.logger.Info("current simulated position", slog.String("state", s.simulator.State().String()),
					slog.Float64("latitude", coord.Latitude), slog.Float64("longitude", coord.Longitude),
					slog.Float64("speed", mov.SpeedKmh), slog.Int("gear", mov.Gear),
					slog.Uint64("tick", s.simulator.Ticks()))
			}
		}
	}
}
