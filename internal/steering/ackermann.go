package steering

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
)

// Chassis axes in local space. Positive rack angles rotate the front wheels
// toward the chassis right axis.
var (
	ChassisForward = mgl32.Vec3{0, 0, 1}
	ChassisRight   = mgl32.Vec3{1, 0, 0}
)

// FrontAngles maps the rack angle onto per-wheel steer angles, blending the
// parallel rack with Ackermann geometry. The wheel on the inside of the turn
// receives the sharper Ackermann angle so both fronts trace concentric arcs.
func FrontAngles(wheelbase, track, ackermannBlend, rack float32) (fl, fr float32) {
	sign := mathx.Sign(rack)
	alpha := math32.Abs(rack)

	//1.- Below the epsilon the rack is straight and both wheels follow it exactly.
	var ackLeft, ackRight float32
	if alpha >= 1e-4 {
		//2.- The centerline radius follows from the bicycle model; the inner and
		// outer radii offset it by half the track.
		radius := wheelbase / math32.Tan(alpha)
		inner := math32.Atan(wheelbase/math32.Max(radius-track/2, 0.01)) * sign
		outer := math32.Atan(wheelbase/math32.Max(radius+track/2, 0.01)) * sign
		if sign > 0 {
			// Turning toward the chassis right axis: the right wheel is inner.
			ackLeft, ackRight = outer, inner
		} else {
			ackLeft, ackRight = inner, outer
		}
	}

	//3.- Blend the parallel rack angle with the Ackermann correction per wheel.
	blend := mathx.Clamp01(ackermannBlend)
	fl = (1-blend)*rack + blend*ackLeft
	fr = (1-blend)*rack + blend*ackRight
	return fl, fr
}

// WheelBasis rotates the chassis forward axis by the wheel steer angle about
// the world up axis and returns the in-plane wheel basis. A chassis pointing
// straight up has no horizontal heading; the basis falls back to world axes.
func WheelBasis(orientation mgl32.Quat, angle float32) (forward, side mgl32.Vec3) {
	fwd := orientation.Rotate(ChassisForward)
	right := orientation.Rotate(ChassisRight)

	//1.- Rotate the heading within the chassis ground plane.
	rotated := fwd.Mul(math32.Cos(angle)).Add(right.Mul(math32.Sin(angle)))

	//2.- Collapse onto the horizontal plane; a vertical chassis falls back to +Z.
	rotated[1] = 0
	forward = mathx.SafeNormalize(rotated, mathx.FallbackForward)

	//3.- Side completes the right-handed basis with the world up axis.
	side = mathx.SafeNormalize(mathx.WorldUp.Cross(forward), mathx.FallbackSide)
	return forward, side
}
