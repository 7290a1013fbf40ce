// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wneessen/geosim/internal/geobus"
)

func snapshotEvent(kind geobus.EventKind, tick uint64, distance float64) geobus.Event {
	return geobus.Event{
		Kind: kind,
		Snapshot: geobus.Snapshot{
			Movement:   geobus.Movement{Gear: 2, Gas: 0.5, Damage: 1, SpeedKmh: 54},
			Tick:       tick,
			Distance:   distance,
			Iterations: 2,
		},
	}
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	collector, err := NewCollector(prometheus.NewRegistry(), func() uint64 { return 7 })
	if err != nil {
		t.Fatalf("failed to create collector: %s", err)
	}
	return collector
}

func TestNewCollector(t *testing.T) {
	t.Run("registering twice reuses the collectors", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first, err := NewCollector(reg, nil)
		if err != nil {
			t.Fatalf("failed to create collector: %s", err)
		}
		second, err := NewCollector(reg, nil)
		if err != nil {
			t.Fatalf("failed to create second collector: %s", err)
		}
		first.Ticks.Inc()
		if got := testutil.ToFloat64(second.Ticks); got != 1 {
			t.Errorf("expected shared ticks counter, got %f", got)
		}
	})
	t.Run("incompatible collector fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ticks_total"}))
		if _, err := NewCollector(reg, nil); err == nil {
			t.Error("expected incompatible collector to fail")
		}
	})
}

func TestCollector_Observe(t *testing.T) {
	t.Run("ticks and positions are counted once", func(t *testing.T) {
		collector := newTestCollector(t)
		collector.Observe(snapshotEvent(geobus.EventChange, 0, 0))
		collector.Observe(snapshotEvent(geobus.EventPositionChange, 0, 0))
		collector.Observe(snapshotEvent(geobus.EventChange, 3, 12))
		collector.Observe(snapshotEvent(geobus.EventPositionChange, 3, 12))
		// resync of the same tick
		collector.Observe(snapshotEvent(geobus.EventChange, 3, 12))
		collector.Observe(snapshotEvent(geobus.EventPositionChange, 3, 12))

		if got := testutil.ToFloat64(collector.Ticks); got != 3 {
			t.Errorf("expected 3 ticks, got %f", got)
		}
		if got := testutil.ToFloat64(collector.PositionUpdates); got != 2 {
			t.Errorf("expected 2 position updates, got %f", got)
		}
		if got := testutil.ToFloat64(collector.Odometer); got != 12 {
			t.Errorf("expected odometer at 12m, got %f", got)
		}
	})
	t.Run("gauges follow the movement", func(t *testing.T) {
		collector := newTestCollector(t)
		collector.Observe(snapshotEvent(geobus.EventChange, 1, 0))
		if got := testutil.ToFloat64(collector.Speed); got != 54 {
			t.Errorf("expected speed 54, got %f", got)
		}
		if got := testutil.ToFloat64(collector.Gear); got != 2 {
			t.Errorf("expected gear 2, got %f", got)
		}
		if got := testutil.ToFloat64(collector.Gas); got != 0.5 {
			t.Errorf("expected gas 0.5, got %f", got)
		}
		if got := testutil.ToFloat64(collector.Damage); got != 1 {
			t.Errorf("expected damage 1, got %f", got)
		}
	})
	t.Run("errors are labeled by code", func(t *testing.T) {
		collector := newTestCollector(t)
		collector.Observe(geobus.Event{Kind: geobus.EventError,
			Error: &geobus.PositionError{Code: geobus.PositionUnavailable, Message: "failed"}})
		collector.Observe(geobus.Event{Kind: geobus.EventError})
		if got := testutil.ToFloat64(collector.Errors.WithLabelValues("2")); got != 1 {
			t.Errorf("expected 1 position unavailable error, got %f", got)
		}
		if got := testutil.ToFloat64(collector.Errors.WithLabelValues("unknown")); got != 1 {
			t.Errorf("expected 1 unknown error, got %f", got)
		}
	})
}

func TestCollector_Consume(t *testing.T) {
	collector := newTestCollector(t)
	events := make(chan geobus.Event, 2)
	events <- snapshotEvent(geobus.EventChange, 0, 0)
	events <- snapshotEvent(geobus.EventChange, 2, 0)
	close(events)
	if err := collector.Consume(t.Context(), events); err != nil {
		t.Fatalf("expected nil error for a closed channel, got %s", err)
	}
	if got := testutil.ToFloat64(collector.Ticks); got != 2 {
		t.Errorf("expected 2 ticks, got %f", got)
	}
	if collector.Name() != "metrics" {
		t.Errorf("expected name to be metrics, got %s", collector.Name())
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := collector.Consume(ctx, make(chan geobus.Event)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected error to be %s, got %v", context.Canceled, err)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := newTestCollector(t)
	collector.Observe(snapshotEvent(geobus.EventChange, 0, 0))
	collector.Observe(snapshotEvent(geobus.EventChange, 5, 0))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"geosim_ticks_total 5", "geosim_speed_kmh 54", "geosim_bus_dropped_events_total 7"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestCollector_Serve(t *testing.T) {
	collector := newTestCollector(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %s", err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- collector.Serve(ctx, listener)
	}()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + listener.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %s", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "geosim_position_updates_total") {
		t.Error("expected served metrics to contain the position updates counter")
	}

	cancel()
	if err = <-done; err != nil {
		t.Errorf("expected clean shutdown, got %s", err)
	}
}
