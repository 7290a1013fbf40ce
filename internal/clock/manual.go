// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type manualTimer struct {
	id       uuid.UUID
	due      time.Duration
	interval time.Duration
	seq      uint64
	fn       func()
}

// ManualScheduler implements Scheduler on simulated time that only moves when Advance is called.
// Timers fire synchronously on the goroutine calling Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	seq     uint64
	timers  map[uuid.UUID]*manualTimer
}

// NewManualScheduler returns a ManualScheduler at elapsed time 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{timers: make(map[uuid.UUID]*manualTimer)}
}

// AfterDelay satisfies the Scheduler interface for the ManualScheduler type.
func (m *ManualScheduler) AfterDelay(delay time.Duration, fn func()) (uuid.UUID, error) {
	return m.add(max(delay, 0), 0, fn), nil
}

// EveryInterval satisfies the Scheduler interface for the ManualScheduler type.
func (m *ManualScheduler) EveryInterval(interval time.Duration, fn func()) (uuid.UUID, error) {
	if interval <= 0 {
		return uuid.Nil, ErrInvalidInterval
	}
	return m.add(interval, interval, fn), nil
}

// Cancel satisfies the Scheduler interface for the ManualScheduler type.
func (m *ManualScheduler) Cancel(id uuid.UUID) {
	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()
}

// Advance moves the simulated time forward and fires all timers that become due, in order of
// their due time. Timers registered by a firing callback are honored within the same Advance.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.elapsed + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.elapsed = target
			m.mu.Unlock()
			return
		}
		m.elapsed = next.due
		if next.interval > 0 {
			next.due += next.interval
		} else {
			delete(m.timers, next.id)
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

// Elapsed returns the simulated time passed since creation.
func (m *ManualScheduler) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}

// Pending returns the number of registered timers.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *ManualScheduler) add(due, interval time.Duration, fn func()) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	timer := &manualTimer{
		id:       uuid.New(),
		due:      m.elapsed + due,
		interval: interval,
		seq:      m.seq,
		fn:       fn,
	}
	m.timers[timer.id] = timer
	return timer.id
}

// nextDue returns the earliest timer due at or before target. Ties are resolved in registration
// order. The caller must hold the lock.
func (m *ManualScheduler) nextDue(target time.Duration) *manualTimer {
	var next *manualTimer
	for _, timer := range m.timers {
		if timer.due > target {
			continue
		}
		if next == nil || timer.due < next.due || (timer.due == next.due && timer.seq < next.seq) {
			next = timer
		}
	}
	return next
}
