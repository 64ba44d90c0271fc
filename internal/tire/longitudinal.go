package tire

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
)

// LongitudinalResult carries the longitudinal impulse and its normalized demand.
type LongitudinalResult struct {
	Impulse mgl32.Vec3
	// Nx is |impulse along forward| / J_cap after every clamp and assist.
	Nx float32
}

// SolveLongitudinal produces the engine plus brake impulse for one wheel. The
// friction capacity J_cap = mu_long * Fz * dt is the single source of truth for
// this step; the brake additionally respects the actuator ceiling derived from
// the routed brake share.
func SolveLongitudinal(ctx *SolveContext, ctrl *ControlInput, patch *ContactPatch, brakeShare float32) LongitudinalResult {
	if ctx == nil || ctrl == nil || patch == nil || !patch.Grounded {
		return LongitudinalResult{}
	}

	dt := ctx.Dt
	jCap := math32.Max(patch.MuLong*patch.NormalForce*dt, 1e-6)
	jBrakeAct := math32.Max(ctx.BrakeForce*brakeShare*dt, 0)

	//1.- Engine impulse on driven wheels, scaled by the instantaneous load fraction.
	var jEngine float32
	if patch.Driven && ctx.DrivenWheels > 0 {
		loadFrac := mathx.Clamp(patch.NormalForce/math32.Max(ctx.FzRef, 1e-6), 0.5, 1.6)
		fEngine := (ctx.EngineForce / float32(ctx.DrivenWheels)) * ctrl.Throttle * loadFrac
		jEngine = mathx.Clamp(fEngine*dt, -jCap, jCap)
	}

	//2.- Traction control trims engine demand relative to the friction budget.
	if ctx.TCSEnabled && ctrl.Throttle > 0.01 && jEngine != 0 {
		nxEngine := math32.Abs(jEngine) / jCap
		if nxEngine > ctx.TCSLimit {
			jEngine *= ctx.TCSLimit / nxEngine
		}
	}

	//3.- Brake impulse targets cancelling this wheel's longitudinal speed this tick.
	var jBrake float32
	if math32.Abs(patch.VLong) >= 0.05 {
		jStop := -ctx.Mass * patch.VLong
		demand := jStop * ctrl.Brake * brakeShare
		jBrake = mathx.Clamp(mathx.Clamp(demand, -jBrakeAct, jBrakeAct), -jCap, jCap)
		if jBrake*patch.VLong > 0 {
			// A brake never accelerates forward motion.
			jBrake = 0
		}
	} else if ctrl.Brake > 0.1 {
		//4.- Near rest, cancel the residual speed under the same caps.
		jBrake = mathx.Clamp(mathx.Clamp(-ctx.Mass*patch.VLong, -jBrakeAct, jBrakeAct), -jCap, jCap)
	}

	//5.- Anti-lock trims brake demand once the contact is moving.
	if ctx.ABSEnabled && ctrl.Brake > 0.01 && patch.PlanarSpeed > 1.0 && jBrake != 0 {
		nxBrake := math32.Abs(jBrake) / jCap
		if nxBrake > ctx.ABSLimit {
			jBrake *= ctx.ABSLimit / nxBrake
		}
	}

	//6.- The tire state modulates how much longitudinal authority survives.
	authority := patch.State.LongAuthority()
	jEngine *= authority
	jBrake *= authority

	//7.- Brakes push against the tangential contact velocity, not the wheel heading,
	// so a locked wheel pointed sideways still slows the chassis.
	impulse := patch.Forward.Mul(jEngine)
	if jBrake != 0 {
		vTan := patch.Forward.Mul(patch.VLong).Add(patch.Side.Mul(patch.VLat))
		if vTan.Len() >= 1e-3 {
			dir := vTan.Mul(-1 / vTan.Len())
			impulse = impulse.Add(dir.Mul(math32.Abs(jBrake)))
		} else {
			impulse = impulse.Add(patch.Forward.Mul(jBrake))
		}
	}

	nx := math32.Abs(impulse.Dot(patch.Forward)) / jCap
	return LongitudinalResult{Impulse: impulse, Nx: nx}
}
