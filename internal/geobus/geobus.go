// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geobus implements a typed publish/subscribe bus for simulated geolocation events and
// an orchestrator that feeds the events to a set of sinks.
package geobus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wneessen/geosim/internal/logger"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// ErrLoggerRequired is returned if a GeoBus is created without a logger.
var ErrLoggerRequired = errors.New("geobus requires a logger")

// EventKind distinguishes the events published on the GeoBus.
type EventKind int

const (
	// EventChange is published whenever the coordinate or the movement snapshot changed.
	EventChange EventKind = iota
	// EventPositionChange is published whenever the coordinate moved.
	EventPositionChange
	// EventError is published for geolocation failures.
	EventError
)

// String satisfies the fmt.Stringer interface for the EventKind type.
func (k EventKind) String() string {
	switch k {
	case EventChange:
		return "change"
	case EventPositionChange:
		return "positionchange"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ErrorCode is the numeric code of a PositionError. The numbering follows the W3C geolocation API.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

// String satisfies the fmt.Stringer interface for the ErrorCode type.
func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// PositionError is the payload of an EventError.
type PositionError struct {
	Code    ErrorCode
	Message string
}

// Error satisfies the error interface for the PositionError type.
func (e *PositionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Event is a single notification on the GeoBus. Snapshot is set for EventChange and
// EventPositionChange, Error for EventError.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Error    *PositionError
	At       time.Time
}

type subscriber struct {
	kinds map[EventKind]struct{}
	once  sync.Once
}

func (s *subscriber) wants(kind EventKind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// GeoBus distributes events from the simulator to any number of subscribers.
type GeoBus struct {
	mu          sync.RWMutex
	logger      *logger.Logger
	latest      map[EventKind]Event
	subscribers map[chan Event]*subscriber
	dropped     atomic.Uint64
}

// New initializes and returns a new instance of GeoBus.
func New(log *logger.Logger) (*GeoBus, error) {
	if log == nil {
		return nil, ErrLoggerRequired
	}
	return &GeoBus{
		logger:      log,
		latest:      make(map[EventKind]Event),
		subscribers: make(map[chan Event]*subscriber),
	}, nil
}

// NewOrchestrator returns an Orchestrator that feeds the events of the bus to the given sinks.
func (b *GeoBus) NewOrchestrator(sinks []Sink) *Orchestrator {
	return &Orchestrator{
		Bus:   b,
		Sinks: sinks,
	}
}

// Subscribe adds a subscriber for the given event kinds with the given buffer size, returning an
// event channel and an unsubscribe function. The latest change and position change events are
// replayed to the new subscriber. The unsubscribe function closes the channel and may be called
// more than once.
func (b *GeoBus) Subscribe(size int, kinds ...EventKind) (<-chan Event, func()) {
	sub := &subscriber{}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]struct{}, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
	}

	eventChan := make(chan Event, size)
	b.mu.Lock()
	b.subscribers[eventChan] = sub
	for _, kind := range []EventKind{EventChange, EventPositionChange} {
		if latest, ok := b.latest[kind]; ok && sub.wants(kind) {
			select {
			case eventChan <- latest:
			default:
			}
		}
	}
	b.mu.Unlock()

	unsub := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, eventChan)
			b.mu.Unlock()
			close(eventChan)
		})
	}
	return eventChan, unsub
}

// SubscribeAll adds a subscriber for all event kinds.
func (b *GeoBus) SubscribeAll(size int) (<-chan Event, func()) {
	return b.Subscribe(size)
}

// Publish broadcasts an event to all interested subscribers without blocking. Events for
// subscribers with a full buffer are dropped.
func (b *GeoBus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if event.Kind != EventError {
		b.latest[event.Kind] = event
	}
	for ch, sub := range b.subscribers {
		if !sub.wants(event.Kind) {
			continue
		}
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.Debug("dropped event for slow subscriber", slog.String("kind", event.Kind.String()))
		}
	}
}

// Latest returns the last published event of the given kind. Error events are not retained.
func (b *GeoBus) Latest(kind EventKind) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	event, ok := b.latest[kind]
	return event, ok
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *GeoBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers returns the number of active subscribers.
func (b *GeoBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
