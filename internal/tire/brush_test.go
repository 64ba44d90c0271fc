package tire

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestSolveBrushLiteDeadzone(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	//1.- Lateral slip inside the deadzone produces nothing.
	patch := groundedPatch(5, 1.0, ctx.FzRef)
	result := SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	if result.J != 0 {
		t.Fatalf("deadzone should zero the impulse, got %.4f", result.J)
	}

	//2.- Slip past the deadzone ramps in smoothly.
	patch = groundedPatch(5, 2.0, ctx.FzRef)
	result = SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	if result.J == 0 {
		t.Fatalf("slip past deadzone should produce an impulse")
	}
}

func TestSolveBrushLiteOpposesSlip(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	//1.- Positive lateral slip yields a negative impulse along side.
	patch := groundedPatch(10, 4, ctx.FzRef)
	result := SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	if result.J >= 0 {
		t.Fatalf("impulse should oppose +v_lat, got %.4f", result.J)
	}

	//2.- Mirrored for negative slip.
	patch = groundedPatch(10, -4, ctx.FzRef)
	result = SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	if result.J <= 0 {
		t.Fatalf("impulse should oppose -v_lat, got %.4f", result.J)
	}
}

func TestSolveBrushLiteCoulombClamp(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	//1.- A huge slip velocity cannot exceed the friction budget.
	patch := groundedPatch(30, 25, ctx.FzRef)
	result := SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	maxLat := patch.MuLat * patch.NormalForce * ctx.Dt
	if math32.Abs(result.J) > maxLat+1e-4 {
		t.Fatalf("Coulomb clamp violated: |J|=%.4f cap=%.4f", math32.Abs(result.J), maxLat)
	}
}

func TestSolveBrushLiteHardBrakeLockout(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	//1.- Hard braking at speed surrenders the patch entirely.
	patch := groundedPatch(10, 4, ctx.FzRef)
	result := SolveBrushLite(&cfg, ctx, &ControlInput{Brake: 0.7}, patch)
	if result.J != 0 {
		t.Fatalf("hard-brake lockout failed, got %.4f", result.J)
	}
}

func TestSolveBrushLiteRearSaturation(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	front := groundedPatch(10, 4, ctx.FzRef)
	front.Wheel = WheelFL
	rear := groundedPatch(10, 4, ctx.FzRef)
	rear.Wheel = WheelRL

	frontResult := SolveBrushLite(&cfg, ctx, &ControlInput{}, front)
	rearResult := SolveBrushLite(&cfg, ctx, &ControlInput{}, rear)

	//1.- The rear axle carries less lateral authority for understeer bias.
	ratio := math32.Abs(rearResult.J) / math32.Max(math32.Abs(frontResult.J), 1e-6)
	if math32.Abs(ratio-cfg.RearFactor) > 1e-3 {
		t.Fatalf("rear saturation mismatch: ratio=%.4f want %.2f", ratio, cfg.RearFactor)
	}
}

func TestSolveBrushLiteLockedTireHasNoLateral(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	patch := groundedPatch(10, 4, ctx.FzRef)
	patch.State = Lock
	result := SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	if result.J != 0 {
		t.Fatalf("locked tire should have zero lateral impulse, got %.4f", result.J)
	}
}

func TestSolveBrushLiteUngroundedIsZero(t *testing.T) {
	cfg := DefaultBrushConfig()
	ctx := testContext()

	patch := groundedPatch(10, 4, ctx.FzRef)
	patch.Grounded = false
	result := SolveBrushLite(&cfg, ctx, &ControlInput{}, patch)
	if result.J != 0 {
		t.Fatalf("ungrounded wheel should be zero, got %.4f", result.J)
	}
}
