package tire

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
)

// BrushConfig tunes the reduced brush lateral model.
type BrushConfig struct {
	// LatDeadzone is the lateral slip speed (m/s) below which no impulse is produced.
	LatDeadzone float32
	// SuspensionFalloff reduces lateral authority as the suspension compresses.
	SuspensionFalloff float32
	// AlphaSat is the slip angle (rad) at which lateral authority bottoms out.
	AlphaSat float32
	// RearFactor saturates the rear axle to bias the balance toward understeer.
	RearFactor float32
}

// DefaultBrushConfig returns the tuned baseline for the brush-lite model.
func DefaultBrushConfig() BrushConfig {
	return BrushConfig{
		LatDeadzone:       1.5,
		SuspensionFalloff: 0.10,
		AlphaSat:          0.6,
		RearFactor:        0.85,
	}
}

// LateralResult carries the lateral impulse produced by the brush model.
type LateralResult struct {
	Impulse mgl32.Vec3
	// J is the signed scalar impulse along the side axis.
	J float32
}

// SolveBrushLite produces the lateral impulse for one wheel. The model pushes
// against lateral slip, bounded by Coulomb friction, with authority shaped by
// slip angle, brake coupling, axle position, and the tire state.
func SolveBrushLite(cfg *BrushConfig, ctx *SolveContext, ctrl *ControlInput, patch *ContactPatch) LateralResult {
	if cfg == nil || ctx == nil || ctrl == nil || patch == nil || !patch.Grounded {
		return LateralResult{}
	}

	//1.- A hard brake at speed surrenders the patch to a pure slide.
	if ctrl.Brake > 0.6 && patch.PlanarSpeed > 3.0 {
		return LateralResult{}
	}

	//2.- Soft-ramp out of the deadzone so authority fades in rather than steps.
	deadzone := cfg.LatDeadzone
	if deadzone <= 0 {
		deadzone = 1.5
	}
	scale := mathx.Clamp((math32.Abs(patch.VLat)-deadzone)/deadzone, 0, 1)
	if scale == 0 {
		return LateralResult{}
	}

	//3.- Compressed suspension carries less lateral authority.
	suspensionFactor := 1 - mathx.Clamp01(patch.Compression)*cfg.SuspensionFalloff

	//4.- Desired impulse cancels the lateral slip of this corner's share of mass.
	j := -patch.VLat * (ctx.Mass / 4) * suspensionFactor * scale

	//5.- Coulomb clamp against the lateral friction budget.
	maxLat := patch.MuLat * patch.NormalForce * ctx.Dt
	j = mathx.Clamp(j, -maxLat, maxLat)

	//6.- Slip-angle falloff: authority falls linearly with slip angle and holds at 20% from AlphaSat on.
	alpha := math32.Atan2(patch.VLat, math32.Max(math32.Abs(patch.VLong), 1))
	j *= mathx.Clamp(1-math32.Abs(alpha)/cfg.AlphaSat, 0.2, 1.0)

	//7.- Brake coupling bleeds lateral authority into the longitudinal channel.
	j *= mathx.Clamp(1-0.6*ctrl.Brake, 0.3, 1.0)

	//8.- Rear saturation for understeer bias.
	if patch.Wheel.IsRear() {
		j *= cfg.RearFactor
	}

	//9.- Heavy braking at highway speed damps the remaining authority.
	if ctrl.Brake > 0.4 && patch.PlanarSpeed > 10 {
		j *= 0.6
	}

	//10.- Tire state modulates the final output.
	j *= patch.State.LatAuthority()

	return LateralResult{Impulse: patch.Side.Mul(j), J: j}
}
