// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

// GeolocationState tracks the last published snapshot. It provides functionality to detect
// changes between ticks.
type GeolocationState struct {
	last     Snapshot
	haveLast bool
}

// Update stores the provided snapshot as the last published one.
func (s *GeolocationState) Update(snapshot Snapshot) {
	s.last = snapshot
	s.haveLast = true
}

// Last returns the last published snapshot, if any.
func (s *GeolocationState) Last() (Snapshot, bool) {
	return s.last, s.haveLast
}

// Reset forgets the last published snapshot.
func (s *GeolocationState) Reset() {
	s.last = Snapshot{}
	s.haveLast = false
}

// Moved reports whether the position of the snapshot differs from the last one. An empty state
// always reports a move.
func (s *GeolocationState) Moved(snapshot Snapshot) bool {
	if !s.haveLast {
		return true
	}
	return !s.last.Coordinate.SamePosition(snapshot.Coordinate)
}

// HasChanged reports whether the position, the heading or the movement of the snapshot differs
// from the last one.
func (s *GeolocationState) HasChanged(snapshot Snapshot) bool {
	if s.Moved(snapshot) {
		return true
	}
	if s.last.Coordinate.Heading.ValueOr(0) != snapshot.Coordinate.Heading.ValueOr(0) {
		return true
	}
	return s.last.Movement != snapshot.Movement
}
