package vehicle

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"driftpursuit/dynamics/internal/tire"
)

// Gravity is the vertical acceleration used to derive static loads.
const Gravity float32 = 9.81

// WheelGeometry describes one suspension corner. Immutable after spawn.
type WheelGeometry struct {
	ID tire.WheelId

	// Mount is the local offset of the suspension attachment from the chassis origin.
	Mount mgl32.Vec3

	RestLength float32
	MaxTravel  float32
	Radius     float32

	// SpringK is the spring stiffness in N/m, DamperC the damping in N*s/m.
	SpringK float32
	DamperC float32

	Driven  bool
	Steered bool

	// Label is the stable debug name, equal to the wheel id.
	Label string
}

// DeriveSuspension converts the target static sag and damping ratio into the
// spring stiffness and damper coefficient for one corner carrying a quarter of
// the chassis mass.
func DeriveSuspension(mass, sag, dampingRatio float32) (springK, damperC float32) {
	//1.- The spring carries the static quarter load at the requested sag.
	staticLoad := mass * Gravity / 4
	springK = staticLoad / math32.Max(sag, 1e-3)
	//2.- The damper follows from the damping ratio against the sprung quarter mass.
	damperC = 2 * dampingRatio * math32.Sqrt(springK*mass/4)
	return springK, damperC
}

// WheelSet builds the four suspension corners for the supplied preset. Mounts
// sit at the axle/track intersections on the underside of the chassis; the
// steered flags mark the front axle and the driven flags follow the layout.
func WheelSet(cfg *Config) [4]WheelGeometry {
	var wheels [4]WheelGeometry
	if cfg == nil {
		return wheels
	}

	springK, damperC := DeriveSuspension(cfg.Mass, cfg.StaticSag, cfg.DampingRatio)
	halfTrack := cfg.TrackWidth / 2
	halfBase := cfg.Wheelbase / 2
	mountY := -cfg.ChassisHalfExtents[1]

	for i, id := range tire.WheelIds {
		x := halfTrack
		if id.IsLeft() {
			x = -halfTrack
		}
		z := halfBase
		if id.IsRear() {
			z = -halfBase
		}
		wheels[i] = WheelGeometry{
			ID:         id,
			Mount:      mgl32.Vec3{x, mountY, z},
			RestLength: cfg.RestLength,
			MaxTravel:  cfg.MaxTravel,
			Radius:     cfg.WheelRadius,
			SpringK:    springK,
			DamperC:    damperC,
			Driven:     cfg.driven(id),
			Steered:    id.IsFront(),
			Label:      id.String(),
		}
	}
	return wheels
}

// DrivenWheels counts the wheels carrying engine torque for the preset.
func DrivenWheels(cfg *Config) int {
	if cfg == nil {
		return 0
	}
	count := 0
	for _, id := range tire.WheelIds {
		if cfg.driven(id) {
			count++
		}
	}
	return count
}
