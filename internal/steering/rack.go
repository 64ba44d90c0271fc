package steering

import (
	"github.com/chewxy/math32"

	"driftpursuit/dynamics/internal/mathx"
)

// DefaultRackTau is the first-order lag time constant for the steering rack.
const DefaultRackTau float32 = 0.10

// AdvanceRack smooths the driver steer input into the rack angle with a
// first-order lag and hard stops at the steering limit. The input is the
// normalized steer command in [-1, 1]; the return value is the new rack angle
// in radians.
func AdvanceRack(current, input, maxAngle, dt, tau float32) float32 {
	if tau <= 0 {
		tau = DefaultRackTau
	}
	target := mathx.Clamp(input, -1, 1) * maxAngle

	//1.- Exponential approach toward the commanded angle.
	current += (target - current) * (1 - math32.Exp(-dt/tau))

	//2.- Mechanical stops at the steering limit.
	return mathx.Clamp(current, -maxAngle, maxAngle)
}
