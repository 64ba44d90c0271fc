package mathx

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Eps is the shared guard applied to divisions and normalizations.
const Eps float32 = 1e-6

// WorldUp is the ground normal used by the flat-floor contact model.
var WorldUp = mgl32.Vec3{0, 1, 0}

// FallbackForward replaces a degenerate forward axis.
var FallbackForward = mgl32.Vec3{0, 0, 1}

// FallbackSide replaces a degenerate side axis.
var FallbackSide = mgl32.Vec3{1, 0, 0}

// Clamp bounds value into the inclusive [lo, hi] interval.
func Clamp(value, lo, hi float32) float32 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Clamp01 bounds value into [0, 1].
func Clamp01(value float32) float32 {
	return Clamp(value, 0, 1)
}

// GuardDiv divides numerator by max(denominator, Eps) so callers never divide by zero.
func GuardDiv(numerator, denominator float32) float32 {
	return numerator / math32.Max(denominator, Eps)
}

// SafeNormalize returns the unit vector of v, or fallback when v is shorter than Eps.
func SafeNormalize(v, fallback mgl32.Vec3) mgl32.Vec3 {
	//1.- Measure the squared length first to avoid a sqrt on degenerate input.
	lenSq := v.Dot(v)
	if lenSq < Eps*Eps {
		return fallback
	}
	return v.Mul(1 / math32.Sqrt(lenSq))
}

// Planarize removes the component of v along the unit normal n.
func Planarize(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

// PlanarBasis builds the contact-plane wheel basis from a raw forward direction and
// the ground normal. Both outputs are unit length, orthogonal to n, and right-handed
// with side = n x forward.
func PlanarBasis(forwardRaw, n mgl32.Vec3) (forward, side mgl32.Vec3) {
	//1.- Project the raw forward into the contact plane and normalize with a fallback.
	forward = SafeNormalize(Planarize(forwardRaw, n), FallbackForward)
	//2.- Derive the side axis from the normal so the basis stays right-handed.
	side = SafeNormalize(n.Cross(forward), FallbackSide)
	return forward, side
}

// PlanarSpeed reports the magnitude of the horizontal component of v.
func PlanarSpeed(v mgl32.Vec3) float32 {
	return math32.Sqrt(v.X()*v.X() + v.Z()*v.Z())
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		c := v[i]
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Sign returns -1, 0, or 1 matching the sign of value.
func Sign(value float32) float32 {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}
