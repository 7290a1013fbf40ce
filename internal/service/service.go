// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vorlif/spreak"

	"github.com/wneessen/geosim/internal/clock"
	"github.com/wneessen/geosim/internal/config"
	"github.com/wneessen/geosim/internal/feed"
	"github.com/wneessen/geosim/internal/geobus"
	"github.com/wneessen/geosim/internal/geofile"
	"github.com/wneessen/geosim/internal/hud"
	"github.com/wneessen/geosim/internal/job"
	"github.com/wneessen/geosim/internal/logger"
	"github.com/wneessen/geosim/internal/metrics"
	"github.com/wneessen/geosim/internal/simulator"
)

var ErrLoggerRequired = errors.New("logger is required")

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	bus       *geobus.GeoBus
	scheduler *clock.GocronScheduler
	simulator *simulator.Simulator
	presenter *hud.Presenter
	collector *metrics.Collector
	release   string

	output    io.Writer
	outputMu  sync.Mutex
	input     io.Reader
	outputJob *job.Job
	jobs      []*job.Job
	SignalSrc signalSource
}

// New wires the simulation, its sinks and the dashboard. Tracking is started by Run.
func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer, release string) (*Service, error) {
	if log == nil {
		return nil, ErrLoggerRequired
	}

	bus, err := geobus.New(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create geobus: %w", err)
	}

	pres, err := hud.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	options, err := simulatorOptions(conf)
	if err != nil {
		return nil, err
	}

	scheduler, err := clock.NewGocronScheduler(log, clockwork.NewRealClock())
	if err != nil {
		return nil, err
	}
	sim, err := simulator.New(options, scheduler, bus, log)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(registry, bus.Dropped)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		t:         t,
		bus:       bus,
		scheduler: scheduler,
		simulator: sim,
		presenter: pres,
		collector: collector,
		release:   release,
		output:    os.Stdout,
		input:     os.Stdin,
		SignalSrc: stdLibSignalSource{},
	}
	service.outputJob = job.New(conf.Intervals.Output, service.printHUD)
	service.jobs = append(service.jobs, service.outputJob)

	return service, nil
}

// Simulator returns the simulation session of the service.
func (s *Service) Simulator() *simulator.Simulator {
	return s.simulator
}

// Run starts tracking, the sinks and the dashboard output and blocks until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	var metricsListener net.Listener
	var err error
	if s.config.Metrics.Address != "" {
		metricsListener, err = net.Listen("tcp", s.config.Metrics.Address)
		if err != nil {
			_ = s.scheduler.Shutdown()
			return fmt.Errorf("failed to listen for metrics: %w", err)
		}
	}

	sinks, err := s.createSinks()
	if err != nil {
		if metricsListener != nil {
			_ = metricsListener.Close()
		}
		_ = s.scheduler.Shutdown()
		return err
	}

	var wg sync.WaitGroup
	orchestrator := s.bus.NewOrchestrator(sinks)
	wg.Go(func() { orchestrator.Run(ctx) })

	if metricsListener != nil {
		s.logger.Info("serving metrics", slog.String("address", metricsListener.Addr().String()))
		wg.Go(func() {
			if err := s.collector.Serve(ctx, metricsListener); err != nil {
				s.logger.Error("metrics endpoint failed", logger.Err(err))
			}
		})
	}

	for _, j := range s.jobs {
		if j == nil {
			continue
		}
		wg.Go(func() { j.Start(ctx) })
	}

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	wg.Go(func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	})

	if !s.config.DisableResumeMonitor {
		wg.Go(func() { s.monitorSleepResume(ctx) })
	}
	if !s.config.Controls.Disable && s.input != nil {
		// reading from the input blocks until it is closed, so it is not waited for
		go s.handleControls(ctx, s.input)
	}

	if s.config.Simulation.Tracking {
		if err = s.simulator.SetTracking(true); err != nil {
			s.logger.Error("failed to start tracking", logger.Err(err))
		}
	}

	<-ctx.Done()
	s.simulator.Close()
	wg.Wait()
	return s.scheduler.Shutdown()
}

func (s *Service) createSinks() ([]geobus.Sink, error) {
	sinks := []geobus.Sink{s.collector}

	var server *feed.Server
	if !s.config.Feed.Disable {
		var err error
		server, err = feed.New(s.config.Feed.Address, s.release, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gpsd feed: %w", err)
		}
		if err = server.Listen(); err != nil {
			return nil, fmt.Errorf("failed to start gpsd feed: %w", err)
		}
		sinks = append(sinks, server)
	}

	if !s.config.GeolocationFile.Disable {
		writer, err := geofile.NewWriter(s.config.GeolocationFile.Path, s.logger)
		if err != nil {
			if server != nil {
				server.Close()
			}
			return nil, fmt.Errorf("failed to create geolocation file writer: %w", err)
		}
		sinks = append(sinks, writer)
	}
	return sinks, nil
}

// printHUD outputs the dashboard of the latest snapshot as waybar JSON if tracking has started.
func (s *Service) printHUD(context.Context) {
	snapshot := s.simulator.Snapshot()
	if !snapshot.IsSet() {
		return
	}

	output, err := s.presenter.Render(s.presenter.BuildContext(snapshot.Value()))
	if err != nil {
		s.logger.Error("failed to render dashboard", logger.Err(err))
		return
	}

	s.outputMu.Lock()
	defer s.outputMu.Unlock()
	if err = json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode dashboard data", logger.Err(err))
	}
}

// simulatorOptions maps the configuration onto the simulator options. A configured geolocation
// file overrides the start latitude and longitude.
func simulatorOptions(conf *config.Config) (simulator.Options, error) {
	options := simulator.DefaultOptions()
	options.Tracking = false
	options.TrackingOptions = simulator.TrackingOptions{
		HighAccuracy: conf.Simulation.TrackingOptions.HighAccuracy,
		Timeout:      conf.Simulation.TrackingOptions.Timeout,
		MaxAge:       conf.Simulation.TrackingOptions.MaxAge,
	}
	options.Start = simulator.StartPosition{
		Latitude:  conf.Start.Latitude,
		Longitude: conf.Start.Longitude,
		Heading:   conf.Start.Heading,
	}
	if conf.Start.File != "" {
		lat, lon, err := geofile.Read(conf.Start.File)
		if err != nil {
			return options, fmt.Errorf("failed to read start position: %w", err)
		}
		options.Start.Latitude, options.Start.Longitude = lat, lon
	}
	options.Tick = clock.TickConfig{
		Interval:   conf.Simulation.TickInterval,
		StartDelay: conf.Simulation.StartDelay,
	}
	options.Accuracy = conf.Simulation.Accuracy

	mov := conf.Movement
	options.Movement.MaxThrottle = mov.MaxThrottle
	options.Movement.MinThrottleOnGear = mov.MinThrottleOnGear
	options.Movement.ThrottleStepOnDrive = mov.ThrottleStepOnDrive
	options.Movement.ThrottleDecrementStopping = mov.ThrottleDecrementStopping
	options.Movement.AutoRotationDecrementForward = mov.AutoRotationDecrementForward
	options.Movement.AutoRotationDecrementBackward = mov.AutoRotationDecrementBackward
	options.Movement.MaxRotationAngle = mov.MaxRotationAngle
	options.Movement.OneDirectRotationMeters = mov.OneDirectRotationMeters
	options.Movement.DamageThrottle = mov.DamageThrottle
	options.Movement.Gears = append(options.Movement.Gears[:0:0], mov.GearCoefficients...)

	return options, nil
}
