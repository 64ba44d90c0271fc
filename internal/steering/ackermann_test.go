package steering

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestFrontAnglesStraightRack(t *testing.T) {
	//1.- Below the epsilon both wheels stay straight.
	fl, fr := FrontAngles(2.5, 1.5, 1.0, 0)
	if fl != 0 || fr != 0 {
		t.Fatalf("expected zero angles, got fl=%.4f fr=%.4f", fl, fr)
	}
}

func TestFrontAnglesInnerWheelSharper(t *testing.T) {
	//1.- Full Ackermann: on a positive rack the right wheel is inner and turns more.
	fl, fr := FrontAngles(2.5, 1.5, 1.0, 0.3)
	if fr <= fl {
		t.Fatalf("inner wheel should be sharper: fl=%.4f fr=%.4f", fl, fr)
	}
	//2.- Mirrored on a negative rack.
	fl, fr = FrontAngles(2.5, 1.5, 1.0, -0.3)
	if math32.Abs(fl) <= math32.Abs(fr) {
		t.Fatalf("left wheel should be inner on negative rack: fl=%.4f fr=%.4f", fl, fr)
	}
}

func TestFrontAnglesParallelBlend(t *testing.T) {
	//1.- Zero blend collapses to the parallel rack angle.
	fl, fr := FrontAngles(2.5, 1.5, 0, 0.3)
	if math32.Abs(fl-0.3) > 1e-6 || math32.Abs(fr-0.3) > 1e-6 {
		t.Fatalf("parallel blend mismatch: fl=%.4f fr=%.4f", fl, fr)
	}
	//2.- Partial blend lands between parallel and full Ackermann.
	ackFL, ackFR := FrontAngles(2.5, 1.5, 1.0, 0.3)
	fl, fr = FrontAngles(2.5, 1.5, 0.5, 0.3)
	if fl <= math32.Min(0.3, ackFL)-1e-6 || fl >= math32.Max(0.3, ackFL)+1e-6 {
		t.Fatalf("blended fl outside bounds: %.4f", fl)
	}
	if fr <= math32.Min(0.3, ackFR)-1e-6 || fr >= math32.Max(0.3, ackFR)+1e-6 {
		t.Fatalf("blended fr outside bounds: %.4f", fr)
	}
}

func TestWheelBasisOrthogonal(t *testing.T) {
	//1.- A yawed chassis with a steer angle still yields an orthonormal basis.
	orientation := mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	forward, side := WheelBasis(orientation, 0.25)
	if math32.Abs(forward.Len()-1) > 1e-4 || math32.Abs(side.Len()-1) > 1e-4 {
		t.Fatalf("basis not unit length")
	}
	if math32.Abs(forward.Dot(side)) > 1e-4 {
		t.Fatalf("basis not orthogonal: %.6f", forward.Dot(side))
	}
	if math32.Abs(forward.Y()) > 1e-4 {
		t.Fatalf("forward not horizontal: %.6f", forward.Y())
	}
}

func TestWheelBasisVerticalChassisFallsBack(t *testing.T) {
	//1.- Pitch the chassis straight up so its forward has no horizontal part.
	orientation := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{1, 0, 0})
	forward, _ := WheelBasis(orientation, 0)
	if math32.Abs(forward.Len()-1) > 1e-4 {
		t.Fatalf("fallback forward not unit length")
	}
	if math32.Abs(forward.Y()) > 1e-4 {
		t.Fatalf("fallback forward not horizontal: %v", forward)
	}
}

func TestAdvanceRackConvergesAndClamps(t *testing.T) {
	const maxAngle = 0.6
	const dt = float32(1.0 / 60.0)

	//1.- Repeated steps converge toward the commanded angle.
	var rack float32
	for i := 0; i < 120; i++ {
		rack = AdvanceRack(rack, 1, maxAngle, dt, DefaultRackTau)
	}
	if math32.Abs(rack-maxAngle) > 0.01 {
		t.Fatalf("rack did not converge: %.4f", rack)
	}

	//2.- The mechanical stop bounds any overshoot.
	rack = AdvanceRack(10, 1, maxAngle, dt, DefaultRackTau)
	if rack > maxAngle {
		t.Fatalf("rack exceeded stop: %.4f", rack)
	}

	//3.- A single step moves a predictable fraction toward the target.
	step := AdvanceRack(0, 1, maxAngle, dt, 0.10)
	want := maxAngle * (1 - math32.Exp(-dt/0.10))
	if math32.Abs(step-want) > 1e-5 {
		t.Fatalf("lag step mismatch: got %.6f want %.6f", step, want)
	}
}
