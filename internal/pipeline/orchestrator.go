package pipeline

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/debug"
	"driftpursuit/dynamics/internal/logging"
	"driftpursuit/dynamics/internal/mathx"
	"driftpursuit/dynamics/internal/rigidbody"
	"driftpursuit/dynamics/internal/steering"
	"driftpursuit/dynamics/internal/suspension"
	"driftpursuit/dynamics/internal/tire"
	"driftpursuit/dynamics/internal/vehicle"
)

const (
	// tireForceThreshold is the minimum normal force before a wheel is worth
	// running through the tire solver.
	tireForceThreshold float32 = 50

	// suspensionImpulseCap bounds the per-wheel suspension impulse relative to
	// the static reference load.
	suspensionImpulseCap float32 = 1.5

	// staticLockBrake and staticLockSpeed gate the anti-jitter velocity lock.
	staticLockBrake float32 = 0.8
	staticLockSpeed float32 = 0.4

	// worldBound is the translation limit beyond which a chassis is reset.
	worldBound float32 = 1000

	// resetLogInterval rate-limits safety reset warnings per vehicle, in ticks.
	resetLogInterval uint64 = 60
)

// Vehicle aggregates everything the orchestrator needs to run one chassis
// through the Sense/Redistribute/Act sequence.
type Vehicle struct {
	ID     string
	Config vehicle.Config
	Wheels [4]vehicle.WheelGeometry
	State  *vehicle.State
	Body   rigidbody.Handle

	builder    *suspension.Builder
	brush      tire.BrushConfig
	brakeShare [4]float32
	spawnPose  mgl32.Vec3

	overlay      *debug.VehicleOverlay
	patches      [4]tire.ContactPatch
	rays         [4]suspension.RayInfo
	impulses     []tire.Impulse
	lastResetLog uint64
	resetLogged  bool
}

// Engine is the per-tick pipeline orchestrator. It owns the rigid body world
// exclusively during a tick; the network layer spawns and despawns vehicles
// between ticks, writes vehicle controls through their own locks, and reads
// the published debug overlay.
type Engine struct {
	world *rigidbody.World
	log   *logging.Logger

	vehicles map[string]*Vehicle
	order    []string

	tick uint64

	debugMu   sync.RWMutex
	published *debug.Overlay
}

// NewEngine wires the orchestrator to its rigid body world.
func NewEngine(world *rigidbody.World, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.L()
	}
	return &Engine{
		world:     world,
		log:       log,
		vehicles:  make(map[string]*Vehicle),
		published: &debug.Overlay{},
	}
}

// World exposes the owned rigid body world for snapshot readers.
func (e *Engine) World() *rigidbody.World { return e.world }

// Tick returns the number of completed simulation steps.
func (e *Engine) Tick() uint64 { return e.tick }

// SpawnVehicle creates a chassis body and the four suspension corners for the
// preset, returning the body handle for the state registry.
func (e *Engine) SpawnVehicle(id string, cfg vehicle.Config, position mgl32.Vec3) rigidbody.Handle {
	if e == nil || id == "" {
		return rigidbody.InvalidHandle
	}

	//1.- A respawn for a live identifier replaces the previous chassis.
	if _, exists := e.vehicles[id]; exists {
		e.DespawnVehicle(id)
	}

	//2.- The chassis body carries the preset's mass, extents, COM, and damping.
	handle := e.world.CreateBody(rigidbody.BodyDef{
		Position:       position,
		Orientation:    mgl32.QuatIdent(),
		Mass:           cfg.Mass,
		LocalCOM:       mgl32.Vec3{cfg.ChassisCOMOffset[0], cfg.ChassisCOMOffset[1], cfg.ChassisCOMOffset[2]},
		HalfExtents:    mgl32.Vec3{cfg.ChassisHalfExtents[0], cfg.ChassisHalfExtents[1], cfg.ChassisHalfExtents[2]},
		LinearDamping:  cfg.LinearDamping,
		AngularDamping: cfg.AngularDamping,
		MaxSpeed:       cfg.MaxSpeed,
	})

	//3.- Route the brake authority across the axles per the preset bias.
	var shares [4]float32
	for i, wid := range tire.WheelIds {
		if wid.IsFront() {
			shares[i] = cfg.BrakeBias / 2
		} else {
			shares[i] = (1 - cfg.BrakeBias) / 2
		}
	}

	veh := &Vehicle{
		ID:         id,
		Config:     cfg,
		Wheels:     vehicle.WheelSet(&cfg),
		State:      vehicle.NewState(),
		Body:       handle,
		builder:    suspension.NewBuilder(1.0, cfg.PneumaticTrail),
		brush:      tire.DefaultBrushConfig(),
		brakeShare: shares,
		spawnPose:  position,
		overlay:    debug.NewVehicleOverlay(id),
		impulses:   make([]tire.Impulse, 0, 16),
	}

	e.vehicles[id] = veh
	e.order = append(e.order, id)
	return handle
}

// DespawnVehicle removes the chassis and associated wheel state.
func (e *Engine) DespawnVehicle(id string) {
	if e == nil {
		return
	}
	veh, ok := e.vehicles[id]
	if !ok {
		return
	}
	e.world.Remove(veh.Body)
	delete(e.vehicles, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// ApplyPlayerInput stores the latest driver intent for the vehicle. The values
// are clamped when the tick reads them.
func (e *Engine) ApplyPlayerInput(id string, controls vehicle.Controls) {
	if e == nil {
		return
	}
	if veh, ok := e.vehicles[id]; ok {
		veh.State.SetControls(controls)
	}
}

// Vehicle resolves a vehicle aggregate by identifier, for tests and snapshots.
func (e *Engine) Vehicle(id string) *Vehicle {
	if e == nil {
		return nil
	}
	return e.vehicles[id]
}

// Patches exposes the most recent contact patches, primarily for diagnostics.
func (v *Vehicle) Patches() [4]tire.ContactPatch {
	if v == nil {
		return [4]tire.ContactPatch{}
	}
	return v.patches
}

// Step advances every vehicle through the Sense/Redistribute/Act phases, steps
// the rigid body world once, and applies the safety clamps.
func (e *Engine) Step(dt float32) {
	if e == nil || dt <= 0 {
		return
	}

	//1.- Vehicles are processed sequentially in spawn order for determinism.
	for _, id := range e.order {
		e.stepVehicle(e.vehicles[id], dt)
	}

	//2.- The host integrator runs exactly once per tick after all vehicles.
	e.world.Step(dt)
	e.tick++

	//3.- Safety pass: catch non-finite or runaway chassis state.
	for _, id := range e.order {
		e.safetyCheck(e.vehicles[id])
	}

	//4.- Swap the populated overlays out to the transport layer.
	e.publishOverlay()
}

func (e *Engine) stepVehicle(v *Vehicle, dt float32) {
	if v == nil {
		return
	}
	body := e.world.Body(v.Body)
	if body == nil {
		// No rigid body for this vehicle; skip the tick.
		return
	}

	cfg := &v.Config
	fzRef := cfg.FzRef()

	//1.- Phase 0: read clamped controls and advance the steering rack.
	controls := v.State.ReadControls()
	v.State.RackAngle = steering.AdvanceRack(v.State.RackAngle, controls.Steer, cfg.MaxSteerAngle, dt, steering.DefaultRackTau)

	//2.- Phase 1: sense ground contact under each wheel.
	flAngle, frAngle := steering.FrontAngles(cfg.Wheelbase, cfg.TrackWidth, cfg.Ackermann, v.State.RackAngle)
	chassisForward := body.Orientation.Rotate(steering.ChassisForward)

	compressions := make(map[tire.WheelId]float32, 4)
	normals := make(map[tire.WheelId]float32, 4)

	for i := range v.Wheels {
		wheel := &v.Wheels[i]
		forwardRaw := chassisForward
		if wheel.Steered {
			angle := frAngle
			if wheel.ID.IsLeft() {
				angle = flAngle
			}
			forwardRaw, _ = steering.WheelBasis(body.Orientation, angle)
		}
		patch, ray := v.builder.Build(body, v.Body, e.world, wheel, cfg, forwardRaw, v.State.Tires[i], controls.Brake, dt)
		v.patches[i] = patch
		v.rays[i] = ray
		if patch.Grounded {
			compressions[wheel.ID] = patch.Compression
			normals[wheel.ID] = patch.NormalForce
		}
	}

	//3.- Phase 2: anti-roll bars redistribute normal force per axle.
	suspension.ApplyLoadTransfer(suspension.FrontAxle, normals, compressions, cfg.ARBFront, fzRef)
	suspension.ApplyLoadTransfer(suspension.RearAxle, normals, compressions, cfg.ARBRear, fzRef)
	for i := range v.patches {
		if v.patches[i].Grounded {
			v.patches[i].NormalForce = normals[v.patches[i].Wheel]
		}
	}

	//4.- Phase 3: accumulate suspension and tire impulses.
	v.impulses = v.impulses[:0]
	ctx := tire.SolveContext{
		Dt:           dt,
		Mass:         cfg.Mass,
		FzRef:        fzRef,
		EngineForce:  cfg.EngineForce,
		BrakeForce:   cfg.BrakeForce,
		DrivenWheels: vehicle.DrivenWheels(cfg),
		ABSEnabled:   cfg.ABSEnabled,
		TCSEnabled:   cfg.TCSEnabled,
		ABSLimit:     cfg.ABSNxLimit,
		TCSLimit:     cfg.TCSNxLimit,
	}
	ctrl := controls.TireInput()

	for i := range v.patches {
		patch := &v.patches[i]
		if !patch.Grounded {
			continue
		}
		//5.- Suspension impulse along the ground normal at the contact point.
		jn := mathx.Clamp(patch.NormalForce*dt, 0, suspensionImpulseCap*fzRef*dt)
		v.impulses = append(v.impulses, tire.At(patch.Normal.Mul(jn), patch.HitPoint))

		//6.- Tire solve once the corner carries a meaningful load.
		if patch.NormalForce < tireForceThreshold {
			continue
		}
		solution := tire.SolveWheel(&v.brush, &ctx, &ctrl, patch, v.brakeShare[i])
		v.State.Tires[i] = solution.State
		patch.State = solution.State
		v.impulses = append(v.impulses, solution.Impulses...)
	}

	//7.- Static-friction lock: hold a braked, nearly resting chassis still.
	if controls.Brake > staticLockBrake && mathx.PlanarSpeed(body.Linvel) < staticLockSpeed {
		body.Linvel = mgl32.Vec3{0, body.Linvel.Y(), 0}
		body.Angvel = mgl32.Vec3{}
	}

	//8.- Apply the accumulated impulses in production order.
	for _, impulse := range v.impulses {
		if impulse.Point == nil {
			body.ApplyImpulse(impulse.Linear)
		} else {
			body.ApplyImpulseAt(impulse.Linear, *impulse.Point)
		}
	}

	//9.- Record the debug overlay for this vehicle.
	e.recordOverlay(v, body, controls)
}

// safetyCheck resets a chassis whose translation went non-finite or out of the
// playable volume, and rate-limits the warning per vehicle.
func (e *Engine) safetyCheck(v *Vehicle) {
	if v == nil {
		return
	}
	body := e.world.Body(v.Body)
	if body == nil {
		return
	}
	pos := body.Position
	bad := !mathx.IsFinite(pos) || !mathx.IsFinite(body.Linvel)
	if !bad {
		for i := 0; i < 3; i++ {
			if pos[i] > worldBound || pos[i] < -worldBound {
				bad = true
				break
			}
		}
	}
	if !bad {
		return
	}

	//1.- Restore the spawn pose and cancel every velocity channel.
	body.Position = v.spawnPose
	body.Orientation = mgl32.QuatIdent()
	body.Linvel = mgl32.Vec3{}
	body.Angvel = mgl32.Vec3{}

	//2.- Warn once per reset, rate-limited per vehicle.
	if !v.resetLogged || e.tick-v.lastResetLog >= resetLogInterval {
		e.log.Warn("chassis reset to safe pose",
			logging.String("vehicle_id", v.ID),
			logging.Uint64("tick", e.tick),
		)
		v.lastResetLog = e.tick
		v.resetLogged = true
	}
}

func vec3(v mgl32.Vec3) debug.Vec3 { return debug.Vec3{v.X(), v.Y(), v.Z()} }

// recordOverlay refreshes the vehicle's debug record. The slices were sized at
// spawn and are only appended within that capacity; the chassis box and, inside
// the wheel loop, the hit point of every ray that hits are allocated each tick.
func (e *Engine) recordOverlay(v *Vehicle, body *rigidbody.Body, controls vehicle.Controls) {
	o := v.overlay
	o.Reset()
	o.Chassis = &debug.ChassisBox{
		Position: vec3(body.Position),
		Orientation: debug.Quat{
			body.Orientation.W,
			body.Orientation.V.X(),
			body.Orientation.V.Y(),
			body.Orientation.V.Z(),
		},
		HalfExtents: vec3(body.HalfExtents),
	}

	down := debug.Vec3{0, -1, 0}
	for i := range v.Wheels {
		wheel := &v.Wheels[i]
		patch := &v.patches[i]
		ray := &v.rays[i]

		color := "red"
		if patch.Grounded {
			color = "green"
		}
		r := debug.Ray{Origin: vec3(ray.Origin), Direction: down, Length: ray.Length, Color: color}
		if ray.Hit != nil {
			hit := vec3(*ray.Hit)
			r.Hit = &hit
		}
		o.SuspensionRays = append(o.SuspensionRays, r)

		center := body.Position.Add(body.Orientation.Rotate(wheel.Mount))
		if patch.Grounded {
			center = patch.HitPoint.Add(patch.Normal.Mul(wheel.Radius))
			o.LoadBars = append(o.LoadBars, debug.LoadBar{
				At:    vec3(patch.HitPoint),
				Value: patch.NormalForce,
				Max:   2.2 * v.Config.FzRef(),
			})
			slip := patch.Forward.Mul(patch.VLong).Add(patch.Side.Mul(patch.VLat))
			o.SlipVectors = append(o.SlipVectors, debug.SlipVector{
				At:        vec3(patch.HitPoint),
				Direction: vec3(mathx.SafeNormalize(slip, mgl32.Vec3{})),
				Magnitude: slip.Len(),
			})
		}

		o.Wheels = append(o.Wheels, debug.WheelRecord{
			ID:          wheel.Label,
			Center:      vec3(center),
			Radius:      wheel.Radius,
			Grounded:    patch.Grounded,
			Compression: patch.Compression,
			NormalForce: patch.NormalForce,
			SteerInput:  controls.Steer,
			Steered:     wheel.Steered,
			Driven:      wheel.Driven,
		})
	}

	//1.- Anti-roll links join the two hit points of each grounded axle.
	for _, pair := range [2]suspension.AxlePair{suspension.FrontAxle, suspension.RearAxle} {
		left := &v.patches[pair.Left]
		right := &v.patches[pair.Right]
		if !left.Grounded || !right.Grounded {
			continue
		}
		link := right.HitPoint.Sub(left.HitPoint)
		o.AntiRollLinks = append(o.AntiRollLinks, debug.Ray{
			Origin:    vec3(left.HitPoint),
			Direction: vec3(mathx.SafeNormalize(link, mgl32.Vec3{})),
			Length:    link.Len(),
			Color:     "yellow",
		})
	}
}

// publishOverlay deep-copies the working overlays into a fresh record and
// swaps it out for the transport layer.
func (e *Engine) publishOverlay() {
	overlay := &debug.Overlay{
		Tick:     e.tick,
		Vehicles: make([]*debug.VehicleOverlay, 0, len(e.order)),
	}
	for _, id := range e.order {
		v := e.vehicles[id]
		clone := &debug.VehicleOverlay{
			ID:             v.overlay.ID,
			SuspensionRays: append([]debug.Ray(nil), v.overlay.SuspensionRays...),
			LoadBars:       append([]debug.LoadBar(nil), v.overlay.LoadBars...),
			AntiRollLinks:  append([]debug.Ray(nil), v.overlay.AntiRollLinks...),
			Wheels:         append([]debug.WheelRecord(nil), v.overlay.Wheels...),
			SlipVectors:    append([]debug.SlipVector(nil), v.overlay.SlipVectors...),
		}
		if v.overlay.Chassis != nil {
			chassis := *v.overlay.Chassis
			clone.Chassis = &chassis
		}
		overlay.Vehicles = append(overlay.Vehicles, clone)
	}

	e.debugMu.Lock()
	e.published = overlay
	e.debugMu.Unlock()
}

// DebugSnapshot returns the most recently published overlay. The record is
// immutable after publication so callers may serialize it without copying.
func (e *Engine) DebugSnapshot() *debug.Overlay {
	if e == nil {
		return &debug.Overlay{}
	}
	e.debugMu.RLock()
	defer e.debugMu.RUnlock()
	return e.published
}
