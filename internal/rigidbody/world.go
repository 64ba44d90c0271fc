package rigidbody

import (
	"github.com/go-gl/mathgl/mgl32"
)

// World owns the rigid body set and answers ray queries against the static
// ground. It is owned exclusively by the simulation loop during a tick and is
// deliberately lock free; concurrent access is a caller bug.
type World struct {
	gravity mgl32.Vec3
	groundY float32
	bodies  map[Handle]*Body
	next    Handle
}

// WorldOption customises world construction.
type WorldOption func(*World)

// WithGroundHeight places the flat ground plane at the supplied height.
func WithGroundHeight(y float32) WorldOption {
	return func(w *World) { w.groundY = y }
}

// WithGravity overrides the default downward gravity vector.
func WithGravity(gravity mgl32.Vec3) WorldOption {
	return func(w *World) { w.gravity = gravity }
}

// NewWorld constructs a world with a flat ground plane at y = 0.
func NewWorld(opts ...WorldOption) *World {
	world := &World{
		gravity: mgl32.Vec3{0, -9.81, 0},
		bodies:  make(map[Handle]*Body),
	}
	for _, opt := range opts {
		opt(world)
	}
	return world
}

// CreateBody inserts a body and returns its handle.
func (w *World) CreateBody(def BodyDef) Handle {
	if w == nil {
		return InvalidHandle
	}
	w.next++
	handle := w.next
	w.bodies[handle] = newBody(def)
	return handle
}

// Body resolves a handle to its body, or nil when absent.
func (w *World) Body(handle Handle) *Body {
	if w == nil {
		return nil
	}
	return w.bodies[handle]
}

// Remove deletes the body for the handle.
func (w *World) Remove(handle Handle) {
	if w == nil {
		return
	}
	delete(w.bodies, handle)
}

// GroundHeight exposes the flat ground plane height.
func (w *World) GroundHeight() float32 {
	if w == nil {
		return 0
	}
	return w.groundY
}

// Step advances every body by the fixed timestep and resolves chassis-ground
// penetration. The floor contact is the backstop for crash landings that
// exceed what the suspension can absorb.
func (w *World) Step(dt float32) {
	if w == nil || dt <= 0 {
		return
	}
	for _, body := range w.bodies {
		body.integrate(w.gravity, dt)
		body.resolveGroundContact(w.groundY)
	}
}
