// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package movement implements a discrete-time gear/throttle vehicle model. All transitions are
// pure: they take a State and return the next State.
package movement

import "math"

// throttleEpsilon absorbs floating point noise at the downshift threshold while coasting.
const throttleEpsilon = 1e-9

// State is the drivetrain state of the vehicle.
type State struct {
	Gear      int
	Throttle  float64
	Direction float64
	Damage    uint
}

// Intent holds the movement controls sampled for one tick. Accelerate, Brake, SteerLeft and
// SteerRight are levels; Collision is a one-shot signal.
type Intent struct {
	Accelerate bool
	Brake      bool
	SteerLeft  bool
	SteerRight bool
	Collision  bool
}

// Action is the primary drivetrain action selected for a tick.
type Action int

const (
	ActionCoast Action = iota
	ActionAccelerate
	ActionBrake
	ActionDamage
)

// String satisfies the fmt.Stringer interface for the Action type.
func (a Action) String() string {
	switch a {
	case ActionAccelerate:
		return "accelerate"
	case ActionBrake:
		return "brake"
	case ActionDamage:
		return "damage"
	default:
		return "coast"
	}
}

// Action returns the primary action of an Intent. A collision overrides all other controls,
// accelerating wins over braking.
func (i Intent) Action() Action {
	switch {
	case i.Collision:
		return ActionDamage
	case i.Accelerate:
		return ActionAccelerate
	case i.Brake:
		return ActionBrake
	default:
		return ActionCoast
	}
}

// Model applies the movement rules for a set of parameters.
type Model struct {
	params Params
}

// New returns a Model for the given parameters.
func New(params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{params: params}, nil
}

// Params returns the parameters of the Model.
func (m *Model) Params() Params {
	return m.params
}

// Advance returns the state after one tick with the given intent: the primary action followed
// by steering.
func (m *Model) Advance(state State, intent Intent) State {
	switch intent.Action() {
	case ActionDamage:
		state = m.Damage(state)
	case ActionAccelerate:
		state = m.DriveOn(state)
	case ActionBrake:
		state = m.Stop(state)
	default:
		state = m.Coast(state)
	}
	if intent.SteerLeft {
		state = m.SteerLeft(state)
	}
	if intent.SteerRight {
		state = m.SteerRight(state)
	}
	return state
}

// DriveOn accelerates: it engages the first gear from neutral, shifts up once the throttle is
// maxed out and increases the throttle otherwise.
func (m *Model) DriveOn(state State) State {
	if state.Gear == 0 {
		state.Gear = 1
	}
	if state.Throttle >= m.params.MaxThrottle && state.Gear > 0 && state.Gear < m.params.Gears.MaxGear() {
		state.Gear++
		state.Throttle = m.params.MinThrottleOnGear
		return state
	}
	state.Throttle = math.Min(state.Throttle+m.params.ThrottleStepOnDrive, m.params.MaxThrottle)
	return state
}

// Stop brakes: it lowers the throttle and shifts down once the throttle falls below the minimum
// of the gear. In neutral the throttle is zero.
func (m *Model) Stop(state State) State {
	state.Throttle = math.Max(state.Throttle-m.params.ThrottleDecrementStopping, 0)
	if state.Throttle < m.params.MinThrottleOnGear && state.Gear > 0 {
		state.Gear--
		state.Throttle = m.params.MaxThrottle
	}
	if state.Gear == 0 {
		state.Throttle = 0
	}
	return state
}

// Coast lets the vehicle roll without input: the throttle decays, the model shifts down through
// the gears and drops to neutral from the first gear.
func (m *Model) Coast(state State) State {
	switch {
	case state.Gear < 0:
		state.Throttle = math.Max(state.Throttle-m.params.AutoRotationDecrementBackward, 0)
	case state.Gear == 0:
		state.Throttle = 0
	default:
		state.Throttle = math.Max(state.Throttle-m.params.AutoRotationDecrementForward, 0)
		if state.Throttle < m.params.MinThrottleOnGear+throttleEpsilon {
			if state.Gear > 1 {
				state.Gear--
				state.Throttle = m.params.MaxThrottle
				break
			}
			state.Gear = 0
			state.Throttle = 0
		}
	}
	return state
}

// Damage applies a collision: the vehicle continues in the first gear at the damage throttle.
func (m *Model) Damage(state State) State {
	state.Gear = 1
	state.Throttle = m.params.DamageThrottle
	state.Damage++
	return state
}

// Reset stops the vehicle and centers the steering. The damage counter is kept.
func (m *Model) Reset(state State) State {
	state.Gear = 0
	state.Throttle = 0
	state.Direction = 0
	return state
}

// SteerLeft turns the steering one degree to the left.
func (m *Model) SteerLeft(state State) State {
	state.Direction = math.Max(state.Direction-1, -m.params.MaxRotationAngle)
	return state
}

// SteerRight turns the steering one degree to the right.
func (m *Model) SteerRight(state State) State {
	state.Direction = math.Min(state.Direction+1, m.params.MaxRotationAngle)
	return state
}

// DistancePerSecond returns the distance in meters the vehicle travels per second in the given state.
func (m *Model) DistancePerSecond(state State) float64 {
	return m.params.OneDirectRotationMeters *
		(m.params.Gears.Coefficient(state.Gear) + state.Throttle/m.params.MaxThrottle)
}

// SpeedKmh returns the speed in km/h in the given state.
func (m *Model) SpeedKmh(state State) float64 {
	return m.DistancePerSecond(state) * 3.6
}

// Clamp forces a state into the bounds of the parameters.
func (m *Model) Clamp(state State) State {
	state.Gear = min(max(state.Gear, m.params.Gears.MinGear()), m.params.Gears.MaxGear())
	state.Throttle = math.Min(math.Max(state.Throttle, 0), m.params.MaxThrottle)
	state.Direction = math.Min(math.Max(state.Direction, -m.params.MaxRotationAngle), m.params.MaxRotationAngle)
	return state
}
