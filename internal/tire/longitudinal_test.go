package tire

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func testContext() *SolveContext {
	return &SolveContext{
		Dt:           1.0 / 60.0,
		Mass:         1350,
		FzRef:        1350 * 9.81 / 4,
		EngineForce:  9000,
		BrakeForce:   8000,
		DrivenWheels: 2,
		ABSEnabled:   true,
		TCSEnabled:   true,
		ABSLimit:     0.90,
		TCSLimit:     0.85,
	}
}

func groundedPatch(vLong, vLat, normalForce float32) *ContactPatch {
	return &ContactPatch{
		Wheel:       WheelRL,
		Grounded:    true,
		Forward:     mgl32.Vec3{0, 0, 1},
		Side:        mgl32.Vec3{1, 0, 0},
		Normal:      mgl32.Vec3{0, 1, 0},
		VLong:       vLong,
		VLat:        vLat,
		PlanarSpeed: math32.Sqrt(vLong*vLong + vLat*vLat),
		NormalForce: normalForce,
		MuLat:       0.85,
		MuLong:      0.85,
		Driven:      true,
		State:       Grip,
	}
}

func TestSolveLongitudinalEngineRespectsTCS(t *testing.T) {
	ctx := testContext()
	ctrl := &ControlInput{Throttle: 1}
	patch := groundedPatch(2, 0, ctx.FzRef)

	result := SolveLongitudinal(ctx, ctrl, patch, 0.2)

	//1.- Full throttle on a loaded drive wheel saturates, then TCS trims it.
	if result.Nx > ctx.TCSLimit+1e-3 {
		t.Fatalf("TCS limit exceeded: nx=%.4f", result.Nx)
	}
	if result.Nx < 0.5 {
		t.Fatalf("engine demand unexpectedly small: nx=%.4f", result.Nx)
	}
	//2.- The impulse points along +forward for positive throttle.
	if result.Impulse.Dot(patch.Forward) <= 0 {
		t.Fatalf("engine impulse should push forward, got %v", result.Impulse)
	}
}

func TestSolveLongitudinalUndrivenWheelHasNoEngine(t *testing.T) {
	ctx := testContext()
	ctrl := &ControlInput{Throttle: 1}
	patch := groundedPatch(2, 0, ctx.FzRef)
	patch.Driven = false

	result := SolveLongitudinal(ctx, ctrl, patch, 0.2)
	if result.Impulse.Len() != 0 {
		t.Fatalf("undriven wheel produced engine impulse: %v", result.Impulse)
	}
}

func TestSolveLongitudinalBrakeOpposesMotion(t *testing.T) {
	ctx := testContext()
	ctrl := &ControlInput{Brake: 1}

	//1.- Forward motion brakes backwards.
	patch := groundedPatch(10, 0, ctx.FzRef)
	result := SolveLongitudinal(ctx, ctrl, patch, 0.25)
	along := result.Impulse.Dot(patch.Forward)
	if along >= 0 {
		t.Fatalf("brake impulse should oppose +v_long, got %.4f", along)
	}

	//2.- Reverse motion brakes forwards.
	patch = groundedPatch(-10, 0, ctx.FzRef)
	result = SolveLongitudinal(ctx, ctrl, patch, 0.25)
	along = result.Impulse.Dot(patch.Forward)
	if along <= 0 {
		t.Fatalf("brake impulse should oppose -v_long, got %.4f", along)
	}
}

func TestSolveLongitudinalABSLimit(t *testing.T) {
	ctx := testContext()
	ctrl := &ControlInput{Brake: 1}
	patch := groundedPatch(20, 0, ctx.FzRef)

	//1.- Routing the full actuator to one wheel pushes demand past the budget.
	result := SolveLongitudinal(ctx, ctrl, patch, 1.0)
	if result.Nx > ctx.ABSLimit+1e-3 {
		t.Fatalf("ABS limit exceeded: nx=%.4f", result.Nx)
	}
	if result.Nx < ctx.ABSLimit-0.05 {
		t.Fatalf("ABS should run near its limit, got nx=%.4f", result.Nx)
	}
}

func TestSolveLongitudinalNearRest(t *testing.T) {
	ctx := testContext()

	//1.- A light brake near rest produces nothing.
	patch := groundedPatch(0.01, 0, ctx.FzRef)
	result := SolveLongitudinal(ctx, &ControlInput{Brake: 0.05}, patch, 0.25)
	if result.Impulse.Len() != 0 {
		t.Fatalf("light brake near rest should be zero, got %v", result.Impulse)
	}

	//2.- A firm brake cancels the residual speed, bounded by the caps.
	result = SolveLongitudinal(ctx, &ControlInput{Brake: 0.5}, patch, 0.25)
	along := result.Impulse.Dot(patch.Forward)
	want := -ctx.Mass * patch.VLong
	if math32.Abs(along-want) > 1 {
		t.Fatalf("residual cancellation mismatch: got %.4f want %.4f", along, want)
	}
}

func TestSolveLongitudinalBrakeFollowsTangentialVelocity(t *testing.T) {
	ctx := testContext()
	ctrl := &ControlInput{Brake: 1}

	//1.- With lateral slip present the brake pushes against the full tangential
	// velocity, so the impulse gains a side component.
	patch := groundedPatch(10, 5, ctx.FzRef)
	result := SolveLongitudinal(ctx, ctrl, patch, 0.25)
	if result.Impulse.Dot(patch.Side) >= 0 {
		t.Fatalf("brake should oppose the lateral component too, got %v", result.Impulse)
	}
	if result.Impulse.Dot(patch.Forward) >= 0 {
		t.Fatalf("brake must still oppose forward motion, got %v", result.Impulse)
	}
}

func TestSolveLongitudinalStateModulation(t *testing.T) {
	ctx := testContext()
	ctrl := &ControlInput{Throttle: 0.5}

	gripPatch := groundedPatch(2, 0, ctx.FzRef)
	lockPatch := groundedPatch(2, 0, ctx.FzRef)
	lockPatch.State = Lock

	gripResult := SolveLongitudinal(ctx, ctrl, gripPatch, 0.2)
	lockResult := SolveLongitudinal(ctx, ctrl, lockPatch, 0.2)

	//1.- A locked tire passes half the longitudinal authority.
	ratio := lockResult.Impulse.Len() / math32.Max(gripResult.Impulse.Len(), 1e-6)
	if math32.Abs(ratio-0.5) > 1e-3 {
		t.Fatalf("lock modulation mismatch: ratio=%.4f", ratio)
	}
}

func TestSolveLongitudinalUngroundedIsZero(t *testing.T) {
	ctx := testContext()
	patch := groundedPatch(10, 0, ctx.FzRef)
	patch.Grounded = false
	result := SolveLongitudinal(ctx, &ControlInput{Throttle: 1, Brake: 1}, patch, 0.25)
	if result.Impulse.Len() != 0 || result.Nx != 0 {
		t.Fatalf("ungrounded wheel must contribute nothing")
	}
}
