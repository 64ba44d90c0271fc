package vehicle

import (
	"sync"

	"driftpursuit/dynamics/internal/mathx"
	"driftpursuit/dynamics/internal/tire"
)

// Controls is the raw driver intent for one vehicle. The extra rotational axes
// arrive with every input frame but only the ground-vehicle channels are read
// by the dynamics core.
type Controls struct {
	Throttle float32
	Steer    float32
	Brake    float32
	Ascend   float32
	Pitch    float32
	Yaw      float32
	Roll     float32
}

// Clamped returns a copy with every channel bounded into its valid range.
func (c Controls) Clamped() Controls {
	c.Throttle = mathx.Clamp(c.Throttle, -1, 1)
	c.Steer = mathx.Clamp(c.Steer, -1, 1)
	c.Brake = mathx.Clamp01(c.Brake)
	c.Ascend = mathx.Clamp(c.Ascend, -1, 1)
	c.Pitch = mathx.Clamp(c.Pitch, -1, 1)
	c.Yaw = mathx.Clamp(c.Yaw, -1, 1)
	c.Roll = mathx.Clamp(c.Roll, -1, 1)
	return c
}

// TireInput projects the controls onto the channels the tire solver consumes.
func (c Controls) TireInput() tire.ControlInput {
	return tire.ControlInput{Throttle: c.Throttle, Steer: c.Steer, Brake: c.Brake}
}

// State is the mutable per-vehicle session state. Controls are written by the
// network goroutine under the internal lock and read once at the start of each
// tick; the remaining fields are owned by the simulation loop.
type State struct {
	mu       sync.Mutex
	controls Controls

	// RackAngle is the current smoothed steering rack angle in radians.
	RackAngle float32

	// Tires carries the per-wheel state machine across ticks, indexed like WheelIds.
	Tires [4]tire.State
}

// NewState returns a session state with every tire in grip.
func NewState() *State {
	return &State{}
}

// SetControls stores the latest driver intent. Values are clamped on read.
func (s *State) SetControls(controls Controls) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.controls = controls
	s.mu.Unlock()
}

// ReadControls returns the clamped driver intent for this tick.
func (s *State) ReadControls() Controls {
	if s == nil {
		return Controls{}
	}
	s.mu.Lock()
	controls := s.controls
	s.mu.Unlock()
	return controls.Clamped()
}
