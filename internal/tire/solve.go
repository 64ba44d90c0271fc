package tire

import (
	"github.com/chewxy/math32"
)

// WheelSolution is the fused output of one wheel solve.
type WheelSolution struct {
	// Impulses holds the longitudinal impulse (applied at COM) followed by the
	// lateral impulse (applied at the contact application point).
	Impulses []Impulse
	// Nx and Ny are the normalized demands after ellipse projection.
	Nx float32
	Ny float32
	// State is the tire state to carry into the next tick.
	State State
}

// SolveWheel runs the longitudinal and lateral solvers for one grounded wheel
// and fuses the two channels through the friction ellipse. The longitudinal
// impulse acts at the COM so it yields pure acceleration; the lateral impulse
// acts at the contact application point so the lever arm to the COM produces
// the yaw moment.
func SolveWheel(cfg *BrushConfig, ctx *SolveContext, ctrl *ControlInput, patch *ContactPatch, brakeShare float32) WheelSolution {
	if ctx == nil || ctrl == nil || patch == nil {
		return WheelSolution{State: Grip}
	}
	if !patch.Grounded {
		// An airborne wheel contributes nothing and keeps its state.
		return WheelSolution{State: patch.State}
	}

	long := SolveLongitudinal(ctx, ctrl, patch, brakeShare)
	lat := SolveBrushLite(cfg, ctx, ctrl, patch)

	//1.- Normalize each channel against its own friction capacity.
	jxCap := math32.Max(patch.MuLong*patch.NormalForce*ctx.Dt, 1e-6)
	jyCap := math32.Max(patch.MuLat*patch.NormalForce*ctx.Dt, 1e-6)
	nx := math32.Abs(long.Impulse.Dot(patch.Forward)) / jxCap
	ny := math32.Abs(lat.J) / jyCap

	//2.- The raw demands drive the state machine; saturation is only visible here.
	next := NextState(patch.State, nx, ny, ctrl.Brake, patch.PlanarSpeed)

	//3.- Project the combined demand back onto the ellipse boundary uniformly.
	scale := float32(1)
	if k := math32.Sqrt(nx*nx + ny*ny); k > 1 {
		scale = 1 / k
	}
	longImpulse := long.Impulse.Mul(scale)
	latImpulse := lat.Impulse.Mul(scale)

	return WheelSolution{
		Impulses: []Impulse{
			AtCOM(longImpulse),
			At(latImpulse, patch.ApplyPoint),
		},
		Nx:    nx * scale,
		Ny:    ny * scale,
		State: next,
	}
}
