package rigidbody

import (
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
)

// Handle identifies one rigid body inside a World. The zero handle is invalid.
type Handle uint64

// InvalidHandle never resolves to a body.
const InvalidHandle Handle = 0

// BodyDef describes a rigid body at creation time.
type BodyDef struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Mass        float32

	// LocalCOM offsets the centre of mass from the body origin in local space.
	LocalCOM mgl32.Vec3

	// HalfExtents size the box collider used for the inertia tensor.
	HalfExtents mgl32.Vec3

	LinearDamping  float32
	AngularDamping float32

	// MaxSpeed clamps the linear velocity magnitude. Zero disables the guard.
	MaxSpeed float32
}

// Body is a single rigid chassis integrated by the world. Wheels are raycast
// probes, not bodies, so the dynamics core only ever touches the chassis here.
type Body struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Linvel      mgl32.Vec3
	Angvel      mgl32.Vec3

	Mass     float32
	LocalCOM mgl32.Vec3

	HalfExtents    mgl32.Vec3
	LinearDamping  float32
	AngularDamping float32
	MaxSpeed       float32

	invMass float32
	// invInertia is the diagonal of the inverse box inertia tensor in local space.
	invInertia mgl32.Vec3
}

func newBody(def BodyDef) *Body {
	body := &Body{
		Position:       def.Position,
		Orientation:    def.Orientation.Normalize(),
		Mass:           def.Mass,
		LocalCOM:       def.LocalCOM,
		HalfExtents:    def.HalfExtents,
		LinearDamping:  def.LinearDamping,
		AngularDamping: def.AngularDamping,
		MaxSpeed:       def.MaxSpeed,
	}
	if body.Mass <= 0 {
		body.Mass = 1
	}
	if body.Orientation.Len() == 0 {
		body.Orientation = mgl32.QuatIdent()
	}
	body.invMass = 1 / body.Mass

	//1.- Solid box inertia about the centre of mass: I = m/3 * (h_j^2 + h_k^2).
	hx, hy, hz := def.HalfExtents.X(), def.HalfExtents.Y(), def.HalfExtents.Z()
	ix := body.Mass / 3 * (hy*hy + hz*hz)
	iy := body.Mass / 3 * (hx*hx + hz*hz)
	iz := body.Mass / 3 * (hx*hx + hy*hy)
	body.invInertia = mgl32.Vec3{
		mathx.GuardDiv(1, ix),
		mathx.GuardDiv(1, iy),
		mathx.GuardDiv(1, iz),
	}
	return body
}

// COMWorld returns the world-space centre of mass.
func (b *Body) COMWorld() mgl32.Vec3 {
	return b.Position.Add(b.Orientation.Rotate(b.LocalCOM))
}

// VelocityAt reports the world velocity of a point rigidly attached to the body.
func (b *Body) VelocityAt(point mgl32.Vec3) mgl32.Vec3 {
	return b.Linvel.Add(b.Angvel.Cross(point.Sub(b.COMWorld())))
}

// ApplyImpulse applies a linear impulse at the centre of mass.
func (b *Body) ApplyImpulse(impulse mgl32.Vec3) {
	b.Linvel = b.Linvel.Add(impulse.Mul(b.invMass))
}

// ApplyImpulseAt applies a linear impulse at a world point, producing torque
// through the lever arm to the centre of mass.
func (b *Body) ApplyImpulseAt(impulse, point mgl32.Vec3) {
	//1.- The linear response is identical to a COM impulse.
	b.Linvel = b.Linvel.Add(impulse.Mul(b.invMass))
	//2.- The angular response maps the world torque impulse through the local
	// inverse inertia tensor.
	arm := point.Sub(b.COMWorld())
	torque := arm.Cross(impulse)
	local := b.Orientation.Inverse().Rotate(torque)
	local = mgl32.Vec3{
		local.X() * b.invInertia.X(),
		local.Y() * b.invInertia.Y(),
		local.Z() * b.invInertia.Z(),
	}
	b.Angvel = b.Angvel.Add(b.Orientation.Rotate(local))
}

// integrate advances the body one step with semi-implicit Euler.
func (b *Body) integrate(gravity mgl32.Vec3, dt float32) {
	//1.- Accumulate gravity before damping so a resting body still settles.
	b.Linvel = b.Linvel.Add(gravity.Mul(dt))

	//2.- Proportional damping mirrors the host engine's drag channels.
	b.Linvel = b.Linvel.Mul(1 / (1 + b.LinearDamping*dt))
	b.Angvel = b.Angvel.Mul(1 / (1 + b.AngularDamping*dt))

	//3.- Clamp the speed to the configured ceiling for parity across runtimes.
	if b.MaxSpeed > 0 {
		if speed := b.Linvel.Len(); speed > b.MaxSpeed {
			b.Linvel = b.Linvel.Mul(b.MaxSpeed / speed)
		}
	}

	//4.- Semi-implicit Euler: the updated velocity moves the pose.
	b.Position = b.Position.Add(b.Linvel.Mul(dt))

	//5.- Quaternion derivative q' = 0.5 * (0, w) * q keeps orientation unit length.
	omega := mgl32.Quat{W: 0, V: b.Angvel}
	delta := omega.Mul(b.Orientation).Scale(0.5 * dt)
	b.Orientation = b.Orientation.Add(delta).Normalize()
}

// resolveGroundContact stops the chassis box from sinking through the floor.
// The contact is inelastic: penetration is corrected positionally and any
// downward velocity is cancelled.
func (b *Body) resolveGroundContact(groundY float32) {
	bottom := b.Position.Y() - b.HalfExtents.Y()
	if bottom >= groundY {
		return
	}
	b.Position[1] += groundY - bottom
	if b.Linvel.Y() < 0 {
		b.Linvel[1] = 0
	}
}
