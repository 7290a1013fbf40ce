// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/wneessen/geosim/internal/logger"
	"github.com/wneessen/geosim/internal/vartype"
)

func testBus(t *testing.T) *GeoBus {
	t.Helper()
	bus, err := New(logger.NewLogger(slog.LevelDebug, bytes.NewBuffer(nil)))
	if err != nil {
		t.Fatalf("failed to create geobus: %s", err)
	}
	return bus
}

func snapshotAt(lat, lon float64) Snapshot {
	return Snapshot{Coordinate: Coordinate{Latitude: lat, Longitude: lon, Accuracy: 5}}
}

func TestGeolocationState_HasChanged(t *testing.T) {
	t.Run("empty state always returns true", func(t *testing.T) {
		state := GeolocationState{}
		if !state.HasChanged(snapshotAt(1, 1)) {
			t.Error("expected state to have changed")
		}
		if !state.Moved(snapshotAt(1, 1)) {
			t.Error("expected state to have moved")
		}
	})
	t.Run("same snapshot returns false", func(t *testing.T) {
		state := GeolocationState{}
		state.Update(snapshotAt(1, 1))
		if state.HasChanged(snapshotAt(1, 1)) {
			t.Error("expected state to not have changed")
		}
	})
	t.Run("different snapshot returns true", func(t *testing.T) {
		tests := []struct {
			name     string
			snapshot Snapshot
			moved    bool
			changed  bool
		}{
			{"lat changes", snapshotAt(2, 1), true, true},
			{"lon changes", snapshotAt(1, 2), true, true},
			{"movement changes", Snapshot{
				Coordinate: Coordinate{Latitude: 1, Longitude: 1, Accuracy: 5},
				Movement:   Movement{Gear: 1},
			}, false, true},
			// a heading change alone is not a positional change
			{"heading changes", Snapshot{Coordinate: Coordinate{
				Latitude: 1, Longitude: 1, Accuracy: 5, Heading: vartype.NewVariable(90.0),
			}}, false, true},
			{"speed changes", Snapshot{Coordinate: Coordinate{
				Latitude: 1, Longitude: 1, Accuracy: 5, Speed: vartype.NewVariable(12.0),
			}}, false, false},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				state := GeolocationState{}
				state.Update(snapshotAt(1, 1))
				if state.Moved(tc.snapshot) != tc.moved {
					t.Error("expected state move to be", tc.moved, "but it wasn't")
				}
				if state.HasChanged(tc.snapshot) != tc.changed {
					t.Error("expected state change to be", tc.changed, "but it wasn't")
				}
			})
		}
	})
	t.Run("reset forgets the last snapshot", func(t *testing.T) {
		state := GeolocationState{}
		state.Update(snapshotAt(1, 1))
		if _, ok := state.Last(); !ok {
			t.Fatal("expected last snapshot to be set")
		}
		state.Reset()
		if _, ok := state.Last(); ok {
			t.Error("expected last snapshot to be unset")
		}
	})
}

func TestCoordinate(t *testing.T) {
	t.Run("valid coordinates", func(t *testing.T) {
		tests := []struct {
			name  string
			coord Coordinate
			valid bool
		}{
			{"origin", Coordinate{}, true},
			{"north pole", Coordinate{Latitude: 90, Longitude: 180}, true},
			{"latitude too large", Coordinate{Latitude: 90.1}, false},
			{"longitude -180", Coordinate{Longitude: -180}, false},
			{"NaN", Coordinate{Latitude: math.NaN()}, false},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				if tc.coord.Valid() != tc.valid {
					t.Errorf("expected validity to be %t", tc.valid)
				}
			})
		}
	})
	t.Run("point uses altitude as height", func(t *testing.T) {
		coord := Coordinate{Latitude: 1, Longitude: 2}
		if coord.Point().Height != 0 {
			t.Errorf("expected height 0, got %f", coord.Point().Height)
		}
		coord.Altitude.Set(12)
		if coord.Point().Height != 12 {
			t.Errorf("expected height 12, got %f", coord.Point().Height)
		}
	})
}

func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrLoggerRequired) {
		t.Errorf("expected error to be %s, got %v", ErrLoggerRequired, err)
	}
}

func TestGeoBus_Subscribe(t *testing.T) {
	t.Run("subscriber receives events of its kinds", func(t *testing.T) {
		bus := testBus(t)
		sub, unsub := bus.Subscribe(4, EventPositionChange)
		defer unsub()

		bus.Publish(Event{Kind: EventChange, Snapshot: snapshotAt(1, 1)})
		bus.Publish(Event{Kind: EventPositionChange, Snapshot: snapshotAt(1, 1)})
		bus.Publish(Event{Kind: EventError, Error: &PositionError{Code: PositionUnavailable, Message: "x"}})

		select {
		case event := <-sub:
			if event.Kind != EventPositionChange {
				t.Errorf("expected position change event, got %s", event.Kind)
			}
			if event.At.IsZero() {
				t.Error("expected event time to be set")
			}
		default:
			t.Fatal("expected an event")
		}
		select {
		case event := <-sub:
			t.Errorf("expected no further events, got %s", event.Kind)
		default:
		}
	})
	t.Run("subscribe all receives every kind", func(t *testing.T) {
		bus := testBus(t)
		sub, unsub := bus.SubscribeAll(4)
		defer unsub()

		bus.Publish(Event{Kind: EventChange})
		bus.Publish(Event{Kind: EventPositionChange})
		bus.Publish(Event{Kind: EventError, Error: &PositionError{Code: Timeout}})
		for _, want := range []EventKind{EventChange, EventPositionChange, EventError} {
			if event := <-sub; event.Kind != want {
				t.Errorf("expected %s, got %s", want, event.Kind)
			}
		}
	})
	t.Run("latest events are replayed to new subscribers", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Event{Kind: EventChange, Snapshot: snapshotAt(1, 1)})
		bus.Publish(Event{Kind: EventPositionChange, Snapshot: snapshotAt(2, 2)})
		bus.Publish(Event{Kind: EventError, Error: &PositionError{Code: Timeout}})

		sub, unsub := bus.SubscribeAll(4)
		defer unsub()
		if event := <-sub; event.Kind != EventChange || event.Snapshot.Coordinate.Latitude != 1 {
			t.Errorf("unexpected replayed event: %+v", event)
		}
		if event := <-sub; event.Kind != EventPositionChange || event.Snapshot.Coordinate.Latitude != 2 {
			t.Errorf("unexpected replayed event: %+v", event)
		}
		select {
		case event := <-sub:
			t.Errorf("expected error events to not be replayed, got %s", event.Kind)
		default:
		}
		if _, ok := bus.Latest(EventError); ok {
			t.Error("expected error events to not be retained")
		}
		if latest, ok := bus.Latest(EventPositionChange); !ok || latest.Snapshot.Coordinate.Latitude != 2 {
			t.Errorf("unexpected latest event: %+v", latest)
		}
	})
	t.Run("slow subscribers drop events", func(t *testing.T) {
		bus := testBus(t)
		_, unsub := bus.SubscribeAll(1)
		defer unsub()
		for range 3 {
			bus.Publish(Event{Kind: EventChange})
		}
		if bus.Dropped() != 2 {
			t.Errorf("expected 2 dropped events, got %d", bus.Dropped())
		}
	})
	t.Run("unsubscribe closes the channel once", func(t *testing.T) {
		bus := testBus(t)
		sub, unsub := bus.SubscribeAll(1)
		if bus.Subscribers() != 1 {
			t.Errorf("expected 1 subscriber, got %d", bus.Subscribers())
		}
		unsub()
		unsub()
		if _, ok := <-sub; ok {
			t.Error("expected channel to be closed")
		}
		if bus.Subscribers() != 0 {
			t.Errorf("expected no subscribers, got %d", bus.Subscribers())
		}
		bus.Publish(Event{Kind: EventChange})
	})
}

func TestPositionError(t *testing.T) {
	err := &PositionError{Code: PositionUnavailable, Message: "geodesic did not converge"}
	if err.Error() != "position unavailable: geodesic did not converge" {
		t.Errorf("unexpected error message: %s", err)
	}
	if got := ErrorCode(42).String(); got != "code 42" {
		t.Errorf("unexpected code string: %s", got)
	}
	if got := EventKind(42).String(); got != "unknown(42)" {
		t.Errorf("unexpected kind string: %s", got)
	}
}

type recordingSink struct {
	name     string
	received atomic.Int64
	runs     atomic.Int64
	panicOn  int64
	failWith error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Consume(ctx context.Context, events <-chan Event) error {
	run := s.runs.Add(1)
	if run <= s.panicOn {
		panic("intentional panic")
	}
	if s.failWith != nil && run == 1 {
		return s.failWith
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			s.received.Add(1)
		}
	}
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("sinks receive events", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			bus := testBus(t)
			sink := &recordingSink{name: "recorder"}
			orchestrator := bus.NewOrchestrator([]Sink{sink})

			ctx, cancel := context.WithCancel(t.Context())
			done := make(chan struct{})
			go func() {
				orchestrator.Run(ctx)
				close(done)
			}()
			synctest.Wait()

			bus.Publish(Event{Kind: EventPositionChange, Snapshot: snapshotAt(1, 1)})
			bus.Publish(Event{Kind: EventChange, Snapshot: snapshotAt(1, 1)})
			synctest.Wait()
			if sink.received.Load() != 2 {
				t.Errorf("expected 2 events, got %d", sink.received.Load())
			}

			cancel()
			<-done
			if bus.Subscribers() != 0 {
				t.Errorf("expected sink subscription to be removed, got %d", bus.Subscribers())
			}
		})
	})
	t.Run("panicking and failing sinks are restarted with backoff", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			bus := testBus(t)
			panicking := &recordingSink{name: "panicking", panicOn: 2}
			failing := &recordingSink{name: "failing", failWith: errors.New("intentionally failing")}
			orchestrator := bus.NewOrchestrator([]Sink{panicking, failing})

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orchestrator.Run(ctx)

			synctest.Wait()
			if panicking.runs.Load() != 1 || failing.runs.Load() != 1 {
				t.Fatalf("expected one run each, got %d and %d", panicking.runs.Load(), failing.runs.Load())
			}

			time.Sleep(initialBackoff)
			synctest.Wait()
			if panicking.runs.Load() != 2 || failing.runs.Load() != 2 {
				t.Fatalf("expected two runs each, got %d and %d", panicking.runs.Load(), failing.runs.Load())
			}

			time.Sleep(2 * initialBackoff)
			synctest.Wait()
			if panicking.runs.Load() != 3 {
				t.Fatalf("expected three runs, got %d", panicking.runs.Load())
			}

			bus.Publish(Event{Kind: EventChange})
			synctest.Wait()
			if panicking.received.Load() != 1 || failing.received.Load() != 1 {
				t.Errorf("expected restarted sinks to receive events, got %d and %d",
					panicking.received.Load(), failing.received.Load())
			}
		})
	})
}

func TestBackoff(t *testing.T) {
	d := initialBackoff
	for range 10 {
		d = nextBackoff(d)
	}
	if d != maxBackoff {
		t.Errorf("expected backoff to be capped at %s, got %s", maxBackoff, d)
	}
	if sleepOrDone(canceledContext(), time.Hour) {
		t.Error("expected sleep to be aborted by canceled context")
	}
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
