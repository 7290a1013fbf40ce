// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package metrics exports the simulation telemetry as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wneessen/geosim/internal/geobus"
)

const (
	namespace       = "geosim"
	shutdownTimeout = time.Second * 5
)

// Collector bundles the Prometheus metrics of a simulation. It implements geobus.Sink.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks           prometheus.Counter
	PositionUpdates prometheus.Counter
	Errors          *prometheus.CounterVec
	Odometer        prometheus.Counter
	Speed           prometheus.Gauge
	Gear            prometheus.Gauge
	Gas             prometheus.Gauge
	Damage          prometheus.Gauge
	Iterations      prometheus.Histogram

	mu           sync.Mutex
	lastTick     uint64
	seenTick     bool
	lastPosition uint64
	seenPosition bool
}

// NewCollector registers the simulation metrics against the provided registerer, defaulting to
// the global Prometheus registry when nil. If dropped is not nil, it is exported as the number of
// events the bus dropped for slow subscribers.
func NewCollector(reg prometheus.Registerer, dropped func() uint64) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	var err error
	c := &Collector{gatherer: gatherer}
	if c.Ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_total",
		Help:      "Total number of simulation ticks.",
	})); err != nil {
		return nil, err
	}
	if c.PositionUpdates, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "position_updates_total",
		Help:      "Total number of published position changes.",
	})); err != nil {
		return nil, err
	}
	if c.Errors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "position_errors_total",
		Help:      "Total number of published position errors, labeled by error code.",
	}, []string{"code"})); err != nil {
		return nil, err
	}
	if c.Odometer, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "odometer_meters_total",
		Help:      "Total distance travelled by the vehicle in meters.",
	})); err != nil {
		return nil, err
	}
	if c.Speed, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "speed_kmh",
		Help:      "Current speed of the vehicle in km/h.",
	})); err != nil {
		return nil, err
	}
	if c.Gear, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gear",
		Help:      "Current gear of the vehicle, -1 is reverse.",
	})); err != nil {
		return nil, err
	}
	if c.Gas, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gas_ratio",
		Help:      "Current throttle as a ratio of the maximum throttle.",
	})); err != nil {
		return nil, err
	}
	if c.Damage, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "damage",
		Help:      "Number of collisions of the vehicle.",
	})); err != nil {
		return nil, err
	}
	if c.Iterations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geodesic_iterations",
		Help:      "Iterations needed to solve the direct geodesic problem per tick.",
		Buckets:   []float64{1, 2, 3, 4, 5, 10, 25, 50, 100},
	})); err != nil {
		return nil, err
	}
	if dropped != nil {
		if _, err = register(reg, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_dropped_events_total",
			Help:      "Total number of events dropped for slow subscribers.",
		}, func() float64 { return float64(dropped()) })); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Name satisfies the geobus.Sink interface.
func (c *Collector) Name() string {
	return "metrics"
}

// Consume records every event until the context is canceled or the event channel is closed.
func (c *Collector) Consume(ctx context.Context, events <-chan geobus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			c.Observe(event)
		}
	}
}

// Observe records a single event. Snapshots are only counted once per tick, so replayed and
// resynced events do not inflate the counters.
func (c *Collector) Observe(event geobus.Event) {
	if event.Kind == geobus.EventError {
		code := "unknown"
		if event.Error != nil {
			code = strconv.Itoa(int(event.Error.Code))
		}
		c.Errors.WithLabelValues(code).Inc()
		return
	}

	snapshot := event.Snapshot
	c.Speed.Set(snapshot.Movement.SpeedKmh)
	c.Gear.Set(float64(snapshot.Movement.Gear))
	c.Gas.Set(snapshot.Movement.Gas)
	c.Damage.Set(float64(snapshot.Movement.Damage))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seenTick && snapshot.Tick > c.lastTick {
		c.Ticks.Add(float64(snapshot.Tick - c.lastTick))
	}
	if !c.seenTick || snapshot.Tick > c.lastTick {
		c.lastTick = snapshot.Tick
		c.seenTick = true
	}

	if event.Kind != geobus.EventPositionChange {
		return
	}
	if c.seenPosition && snapshot.Tick <= c.lastPosition {
		return
	}
	c.lastPosition = snapshot.Tick
	c.seenPosition = true
	c.PositionUpdates.Inc()
	if snapshot.Distance > 0 {
		c.Odometer.Add(snapshot.Distance)
		c.Iterations.Observe(float64(snapshot.Iterations))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve serves the /metrics endpoint on the listener until the context is canceled.
func (c *Collector) Serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: time.Second * 5,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(listener)
	}()
	select {
	case err := <-errChan:
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// register registers the collector, reusing an already registered collector of the same type.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return collector, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return collector, err
	}
	return collector, nil
}
