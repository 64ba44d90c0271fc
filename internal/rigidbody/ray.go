package rigidbody

import (
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
)

// RayHit describes the closest intersection of a downward ray.
type RayHit struct {
	// Distance is the time of impact along the ray in meters.
	Distance float32
	// Point is the world-space hit location.
	Point mgl32.Vec3
	// Normal is the surface normal at the hit. The flat floor always reports
	// world up; the field exists so sloped ground can be added without touching
	// the contact builder.
	Normal mgl32.Vec3
}

// CastRayDown casts a world-down ray against the static ground, ignoring the
// excluded body. Returns false when nothing lies within maxDist.
func (w *World) CastRayDown(origin mgl32.Vec3, maxDist float32, exclude Handle) (RayHit, bool) {
	if w == nil || maxDist <= 0 {
		return RayHit{}, false
	}

	//1.- The only static collider is the flat ground plane; chassis bodies are
	// excluded by construction so the filter never has to reject a hit here.
	_ = exclude
	toi := origin.Y() - w.groundY
	if toi < 0 || toi > maxDist {
		return RayHit{}, false
	}

	return RayHit{
		Distance: toi,
		Point:    mgl32.Vec3{origin.X(), w.groundY, origin.Z()},
		Normal:   mathx.WorldUp,
	}, true
}
