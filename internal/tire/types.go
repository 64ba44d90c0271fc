package tire

import "github.com/go-gl/mathgl/mgl32"

// WheelId addresses one corner of the chassis.
type WheelId int

const (
	WheelFL WheelId = iota
	WheelFR
	WheelRL
	WheelRR
)

// WheelIds lists every corner in solver order.
var WheelIds = [4]WheelId{WheelFL, WheelFR, WheelRL, WheelRR}

// String returns the stable debug label for the wheel.
func (w WheelId) String() string {
	switch w {
	case WheelFL:
		return "FL"
	case WheelFR:
		return "FR"
	case WheelRL:
		return "RL"
	case WheelRR:
		return "RR"
	default:
		return "??"
	}
}

// IsFront reports whether the wheel sits on the steered axle.
func (w WheelId) IsFront() bool { return w == WheelFL || w == WheelFR }

// IsRear reports whether the wheel sits on the rear axle.
func (w WheelId) IsRear() bool { return !w.IsFront() }

// IsLeft reports whether the wheel sits on the left side of the chassis.
func (w WheelId) IsLeft() bool { return w == WheelFL || w == WheelRL }

// ControlInput carries the driver intent consumed by the solvers.
type ControlInput struct {
	Throttle float32
	Steer    float32
	Brake    float32
}

// SolveContext bundles the per-vehicle constants shared by every wheel solve.
type SolveContext struct {
	Dt           float32
	Mass         float32
	FzRef        float32
	EngineForce  float32
	BrakeForce   float32
	DrivenWheels int
	ABSEnabled   bool
	TCSEnabled   bool
	ABSLimit     float32
	TCSLimit     float32
}

// ContactPatch is the per-tick record of ground contact under one wheel.
// It is produced by the suspension contact builder and consumed by the solvers.
type ContactPatch struct {
	Wheel    WheelId
	Grounded bool

	// HitPoint is where the suspension ray struck the ground. ApplyPoint is where
	// the lateral impulse acts; it equals HitPoint unless a pneumatic trail offset
	// shifts it along the forward axis.
	HitPoint   mgl32.Vec3
	ApplyPoint mgl32.Vec3

	// Forward and Side lie in the contact plane, unit length, right-handed with
	// the ground normal (Side = normal x Forward).
	Forward mgl32.Vec3
	Side    mgl32.Vec3
	Normal  mgl32.Vec3

	// VLong is positive when the contact moves along the wheel forward axis
	// (throttle drives VLong positive); VLat is the sideways slip speed.
	VLong       float32
	VLat        float32
	PlanarSpeed float32

	NormalForce float32
	MuLat       float32
	MuLong      float32

	// Compression is the suspension travel ratio in [0, 1].
	Compression float32

	Driven   bool
	State    State
	Brake    float32
	YawRate  float32
	RelCOM   mgl32.Vec3
}

// Impulse is a solver output: a world-space linear impulse with an optional
// application point. A nil point applies the impulse at the chassis COM.
type Impulse struct {
	Linear mgl32.Vec3
	Point  *mgl32.Vec3
}

// At returns an impulse applied at the supplied world point.
func At(linear, point mgl32.Vec3) Impulse {
	p := point
	return Impulse{Linear: linear, Point: &p}
}

// AtCOM returns an impulse applied at the chassis centre of mass.
func AtCOM(linear mgl32.Vec3) Impulse {
	return Impulse{Linear: linear}
}
