package suspension

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
	"driftpursuit/dynamics/internal/rigidbody"
	"driftpursuit/dynamics/internal/tire"
	"driftpursuit/dynamics/internal/vehicle"
)

const (
	// rayLift raises the ray origin above the wheel mount so a compressed
	// suspension never starts the cast below the ground surface.
	rayLift float32 = 0.02

	// damperDeadband suppresses suspension velocity noise below 5 cm/s.
	damperDeadband float32 = 0.05

	// reboundFactor and compressFactor shape the asymmetric damper: extension is
	// damped harder to reduce bounce, compression slightly softer.
	reboundFactor  float32 = 1.5
	compressFactor float32 = 0.8

	// dampLimit caps the damper contribution relative to the spring force.
	dampLimit float32 = 0.6

	// normalCap bounds the suspension normal force relative to the static load.
	normalCap float32 = 2.2
)

// RayCaster answers downward ray queries against the static world.
type RayCaster interface {
	CastRayDown(origin mgl32.Vec3, maxDist float32, exclude rigidbody.Handle) (rigidbody.RayHit, bool)
}

// RayInfo records the cast geometry for the debug overlay.
type RayInfo struct {
	Origin mgl32.Vec3
	Length float32
	Hit    *mgl32.Vec3
}

// Builder constructs contact patches for the four wheels of one vehicle. It
// owns the per-wheel lateral slip relaxation filter, which is the only state
// that survives between ticks.
type Builder struct {
	relaxationLength float32
	pneumaticTrail   float32
	vLatFiltered     [4]float32
}

// NewBuilder returns a contact builder. The relaxation length scales the
// first-order lateral slip filter with forward speed; typical values sit
// between 0.7 and 1.5 meters.
func NewBuilder(relaxationLength, pneumaticTrail float32) *Builder {
	if relaxationLength <= 0 {
		relaxationLength = 1.0
	}
	return &Builder{relaxationLength: relaxationLength, pneumaticTrail: pneumaticTrail}
}

// Build senses ground contact under one wheel and emits its contact patch.
// forwardRaw is the unplanarized wheel heading: the steering output for front
// wheels, the chassis forward axis for rears. prevState carries the tire state
// machine across ticks; it is returned untouched on an ungrounded wheel.
func (b *Builder) Build(
	body *rigidbody.Body,
	handle rigidbody.Handle,
	caster RayCaster,
	wheel *vehicle.WheelGeometry,
	cfg *vehicle.Config,
	forwardRaw mgl32.Vec3,
	prevState tire.State,
	brake float32,
	dt float32,
) (tire.ContactPatch, RayInfo) {
	patch := tire.ContactPatch{
		Wheel:  wheel.ID,
		Driven: wheel.Driven,
		State:  prevState,
		Brake:  brake,
	}

	//1.- Cast one ray straight down from just above the wheel mount.
	mount := body.Position.Add(body.Orientation.Rotate(wheel.Mount))
	origin := mount.Add(mathx.WorldUp.Mul(wheel.Radius + rayLift))
	maxDist := wheel.RestLength + wheel.MaxTravel + wheel.Radius
	ray := RayInfo{Origin: origin, Length: maxDist}

	hit, ok := caster.CastRayDown(origin, maxDist, handle)
	if !ok || hit.Distance <= wheel.Radius {
		//2.- No ground, or a grazing hit inside the wheel radius: ungrounded.
		b.resetFilter(wheel.ID)
		return patch, ray
	}
	ray.Hit = &hit.Point

	//3.- Compression is the travel from rest, clamped to the travel limit.
	compression := mathx.Clamp(wheel.RestLength-(hit.Distance-wheel.Radius), 0, wheel.MaxTravel)
	if compression <= 0 {
		b.resetFilter(wheel.ID)
		return patch, ray
	}

	normal := hit.Normal
	comWorld := body.COMWorld()
	pointVel := body.VelocityAt(hit.Point)

	//4.- Spring-damper normal force with deadband and asymmetric damping.
	suspensionVel := pointVel.Dot(normal)
	if math32.Abs(suspensionVel) < damperDeadband {
		suspensionVel = 0
	}
	if suspensionVel > 0 {
		suspensionVel *= reboundFactor
	} else {
		suspensionVel *= compressFactor
	}
	springForce := wheel.SpringK * compression
	dampForce := mathx.Clamp(-wheel.DamperC*suspensionVel, -dampLimit*springForce, dampLimit*springForce)
	fzRef := cfg.FzRef()
	normalForce := math32.Min(math32.Max(springForce+dampForce, 0), normalCap*fzRef)

	//5.- Load-sensitive lateral friction; longitudinal keeps the base coefficient.
	loadRatio := math32.Max(normalForce/math32.Max(fzRef, 1e-6), 0.2)
	muLat := mathx.Clamp(
		cfg.MuBase*math32.Pow(loadRatio, -cfg.LoadSensitivity),
		0.6*cfg.MuBase,
		1.1*cfg.MuBase,
	)

	//6.- Planarize the wheel heading into the contact plane.
	forward, side := mathx.PlanarBasis(forwardRaw, normal)

	//7.- Slip components; lateral slip runs through the speed-scaled relaxation
	// filter so the brush solver can stay stateless.
	vLong := pointVel.Dot(forward)
	vLatRaw := pointVel.Dot(side)
	vLat := b.relaxLateral(wheel.ID, vLatRaw, vLong, dt)

	tangential := pointVel.Sub(normal.Mul(pointVel.Dot(normal)))

	patch.Grounded = true
	patch.HitPoint = hit.Point
	patch.ApplyPoint = hit.Point.Add(forward.Mul(b.pneumaticTrail))
	patch.Forward = forward
	patch.Side = side
	patch.Normal = normal
	patch.VLong = vLong
	patch.VLat = vLat
	patch.PlanarSpeed = tangential.Len()
	patch.NormalForce = normalForce
	patch.MuLat = muLat
	patch.MuLong = cfg.MuBase
	patch.Compression = compression / math32.Max(wheel.MaxTravel, 1e-6)
	patch.YawRate = body.Angvel.Dot(mathx.WorldUp)
	patch.RelCOM = hit.Point.Sub(comWorld)
	return patch, ray
}

// relaxLateral advances the first-order lateral slip filter for one wheel.
func (b *Builder) relaxLateral(id tire.WheelId, raw, vLong, dt float32) float32 {
	//1.- The relaxation rate scales with forward speed over the relaxation length.
	speed := math32.Max(math32.Abs(vLong), 0.5)
	rate := 1 - math32.Exp(-dt*speed/math32.Max(b.relaxationLength, 1e-3))
	b.vLatFiltered[id] += (raw - b.vLatFiltered[id]) * rate
	return b.vLatFiltered[id]
}

func (b *Builder) resetFilter(id tire.WheelId) {
	b.vLatFiltered[id] = 0
}
