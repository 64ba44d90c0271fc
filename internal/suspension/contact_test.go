package suspension

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/mathx"
	"driftpursuit/dynamics/internal/rigidbody"
	"driftpursuit/dynamics/internal/tire"
	"driftpursuit/dynamics/internal/vehicle"
)

const dt = float32(1.0 / 60.0)

func testSetup(t *testing.T, bodyY float32) (*rigidbody.World, *rigidbody.Body, rigidbody.Handle, vehicle.Config, [4]vehicle.WheelGeometry) {
	t.Helper()
	cfg := vehicle.GT86()
	world := rigidbody.NewWorld()
	handle := world.CreateBody(rigidbody.BodyDef{
		Position:    mgl32.Vec3{0, bodyY, 0},
		Orientation: mgl32.QuatIdent(),
		Mass:        cfg.Mass,
		HalfExtents: mgl32.Vec3{cfg.ChassisHalfExtents[0], cfg.ChassisHalfExtents[1], cfg.ChassisHalfExtents[2]},
	})
	return world, world.Body(handle), handle, cfg, vehicle.WheelSet(&cfg)
}

// restingHeight places the chassis so the suspension sits at the requested
// compression on flat ground.
func restingHeight(cfg *vehicle.Config, compression float32) float32 {
	//1.- Invert the compression formula: c = rest - mount_y - lift.
	mountY := cfg.RestLength - compression - 0.02
	return mountY + cfg.ChassisHalfExtents[1]
}

func TestBuildGroundedPatch(t *testing.T) {
	cfg := vehicle.GT86()
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, cfg.StaticSag))
	builder := NewBuilder(1.0, 0)
	forward := mgl32.Vec3{0, 0, 1}

	patch, ray := builder.Build(body, handle, world, &wheels[0], &cfg, forward, tire.Grip, 0, dt)

	if !patch.Grounded {
		t.Fatalf("wheel should be grounded")
	}
	if ray.Hit == nil {
		t.Fatalf("ray should record its hit point")
	}

	//1.- Compression matches the placement height.
	wantRatio := cfg.StaticSag / cfg.MaxTravel
	if math32.Abs(patch.Compression-wantRatio) > 0.01 {
		t.Fatalf("compression mismatch: got %.4f want %.4f", patch.Compression, wantRatio)
	}

	//2.- The normal force at static sag equals the reference quarter load.
	if math32.Abs(patch.NormalForce-cfg.FzRef()) > cfg.FzRef()*0.02 {
		t.Fatalf("normal force mismatch: got %.1f want %.1f", patch.NormalForce, cfg.FzRef())
	}

	//3.- Basis invariants: planar, unit, right-handed.
	if math32.Abs(patch.Forward.Dot(patch.Normal)) > 1e-4 {
		t.Fatalf("forward not in contact plane")
	}
	if math32.Abs(patch.Side.Dot(patch.Normal)) > 1e-4 {
		t.Fatalf("side not in contact plane")
	}
	if math32.Abs(patch.Forward.Len()-1) > 1e-4 || math32.Abs(patch.Side.Len()-1) > 1e-4 {
		t.Fatalf("basis not unit length")
	}
	cross := patch.Normal.Cross(patch.Forward)
	if cross.Sub(patch.Side).Len() > 1e-4 {
		t.Fatalf("handedness violated")
	}
}

func TestBuildUngroundedWhenHigh(t *testing.T) {
	cfg := vehicle.GT86()
	world, body, handle, cfg, wheels := testSetup(t, 5)
	builder := NewBuilder(1.0, 0)

	patch, ray := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Slide, 0, dt)

	//1.- Out of ray range: ungrounded, no hit, state carried through.
	if patch.Grounded {
		t.Fatalf("wheel should be airborne")
	}
	if ray.Hit != nil {
		t.Fatalf("no hit expected")
	}
	if patch.State != tire.Slide {
		t.Fatalf("state must carry through ungrounded build")
	}
	if patch.NormalForce != 0 {
		t.Fatalf("airborne wheel must carry no load")
	}
}

func TestBuildNegativeCompressionIsUngrounded(t *testing.T) {
	cfg := vehicle.GT86()
	//1.- Hang the chassis past full droop: the ray still hits but the spring is slack.
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, 0)+0.1)
	builder := NewBuilder(1.0, 0)

	patch, _ := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)
	if patch.Grounded {
		t.Fatalf("grazing contact should report ungrounded")
	}
}

func TestBuildNormalForceCapped(t *testing.T) {
	cfg := vehicle.GT86()
	//1.- Bottom out the suspension past max travel.
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, cfg.MaxTravel)-0.05)
	builder := NewBuilder(1.0, 0)

	patch, _ := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)
	if !patch.Grounded {
		t.Fatalf("bottomed suspension should still be grounded")
	}
	if patch.NormalForce > 2.2*cfg.FzRef()+1 {
		t.Fatalf("normal force cap violated: %.1f", patch.NormalForce)
	}
	if patch.Compression > 1+1e-4 {
		t.Fatalf("compression ratio must not exceed 1, got %.4f", patch.Compression)
	}
}

func TestBuildLoadSensitiveFriction(t *testing.T) {
	cfg := vehicle.GT86()
	builder := NewBuilder(1.0, 0)

	//1.- Heavier load lowers the lateral friction coefficient.
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, cfg.MaxTravel)-0.05)
	heavy, _ := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)

	world, body, handle, cfg, wheels = testSetup(t, restingHeight(&cfg, cfg.StaticSag))
	static, _ := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)

	if heavy.MuLat >= static.MuLat {
		t.Fatalf("mu_lat should fall with load: heavy=%.3f static=%.3f", heavy.MuLat, static.MuLat)
	}
	//2.- Both stay inside the documented clamp band.
	for _, mu := range [2]float32{heavy.MuLat, static.MuLat} {
		if mu < 0.6*cfg.MuBase-1e-4 || mu > 1.1*cfg.MuBase+1e-4 {
			t.Fatalf("mu_lat outside clamp band: %.3f", mu)
		}
	}
	if heavy.MuLong != cfg.MuBase {
		t.Fatalf("mu_long should stay at the base coefficient")
	}
}

func TestBuildSlipComponents(t *testing.T) {
	cfg := vehicle.GT86()
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, cfg.StaticSag))
	builder := NewBuilder(1.0, 0)

	//1.- Drive the chassis forward and sideways.
	body.Linvel = mgl32.Vec3{2, 0, 8}

	patch, _ := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)

	//2.- Forward slip is the projection of contact velocity on the wheel heading.
	if math32.Abs(patch.VLong-8) > 0.01 {
		t.Fatalf("v_long mismatch: %.3f", patch.VLong)
	}
	//3.- The lateral channel is filtered; one step moves only a fraction of the
	// raw slip, in the raw slip's direction.
	if patch.VLat <= 0 || patch.VLat > 2 {
		t.Fatalf("filtered v_lat out of range: %.3f", patch.VLat)
	}
	if math32.Abs(patch.PlanarSpeed-mathx.PlanarSpeed(body.Linvel)) > 0.01 {
		t.Fatalf("planar speed mismatch: %.3f", patch.PlanarSpeed)
	}
}

func TestBuildLateralRelaxationConverges(t *testing.T) {
	cfg := vehicle.GT86()
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, cfg.StaticSag))
	builder := NewBuilder(1.0, 0)
	body.Linvel = mgl32.Vec3{3, 0, 10}

	//1.- Repeated builds converge the filtered slip onto the raw value.
	var patch tire.ContactPatch
	for i := 0; i < 120; i++ {
		patch, _ = builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)
	}
	if math32.Abs(patch.VLat-3) > 0.05 {
		t.Fatalf("relaxation did not converge: %.3f", patch.VLat)
	}
}

func TestBuildPneumaticTrailShiftsApplyPoint(t *testing.T) {
	cfg := vehicle.GT86()
	world, body, handle, cfg, wheels := testSetup(t, restingHeight(&cfg, cfg.StaticSag))
	builder := NewBuilder(1.0, 0.05)

	patch, _ := builder.Build(body, handle, world, &wheels[0], &cfg, mgl32.Vec3{0, 0, 1}, tire.Grip, 0, dt)

	offset := patch.ApplyPoint.Sub(patch.HitPoint)
	if math32.Abs(offset.Dot(patch.Forward)-0.05) > 1e-4 {
		t.Fatalf("pneumatic trail offset mismatch: %v", offset)
	}
}
