package vehicle

import (
	"encoding/json"
	"sync"

	_ "embed"

	"driftpursuit/dynamics/internal/mathx"
	"driftpursuit/dynamics/internal/tire"
)

// Drive layouts recognised by preset files.
const (
	LayoutRWD = "rwd"
	LayoutFWD = "fwd"
	LayoutAWD = "awd"
)

// Config captures the tunable dynamics parameters for one vehicle preset.
// Fields outside their documented ranges are clamped at load time.
type Config struct {
	Name string `json:"name" yaml:"name"`

	Mass           float32 `json:"mass" yaml:"mass"`
	EngineForce    float32 `json:"engine_force" yaml:"engine_force"`
	BrakeForce     float32 `json:"brake_force" yaml:"brake_force"`
	MaxSpeed       float32 `json:"max_speed" yaml:"max_speed"`
	LinearDamping  float32 `json:"linear_damping" yaml:"linear_damping"`
	AngularDamping float32 `json:"angular_damping" yaml:"angular_damping"`

	Wheelbase     float32 `json:"wheelbase" yaml:"wheelbase"`
	TrackWidth    float32 `json:"track_width" yaml:"track_width"`
	MaxSteerAngle float32 `json:"max_steer_angle" yaml:"max_steer_angle"`
	Ackermann     float32 `json:"ackermann" yaml:"ackermann"`

	ChassisHalfExtents [3]float32 `json:"chassis_half_extents" yaml:"chassis_half_extents"`
	ChassisCOMOffset   [3]float32 `json:"chassis_com_offset" yaml:"chassis_com_offset"`

	ARBFront        float32 `json:"arb_front" yaml:"arb_front"`
	ARBRear         float32 `json:"arb_rear" yaml:"arb_rear"`
	MuBase          float32 `json:"mu_base" yaml:"mu_base"`
	LoadSensitivity float32 `json:"load_sensitivity" yaml:"load_sensitivity"`

	// BrakeBias is the fraction of total brake authority routed to the front axle.
	BrakeBias float32 `json:"brake_bias" yaml:"brake_bias"`

	ABSEnabled bool    `json:"abs_enabled" yaml:"abs_enabled"`
	TCSEnabled bool    `json:"tcs_enabled" yaml:"tcs_enabled"`
	ABSNxLimit float32 `json:"abs_nx_limit" yaml:"abs_nx_limit"`
	TCSNxLimit float32 `json:"tcs_nx_limit" yaml:"tcs_nx_limit"`

	// Suspension geometry feeding the derived spring and damper constants.
	WheelRadius  float32 `json:"wheel_radius" yaml:"wheel_radius"`
	RestLength   float32 `json:"rest_length" yaml:"rest_length"`
	MaxTravel    float32 `json:"max_travel" yaml:"max_travel"`
	StaticSag    float32 `json:"static_sag" yaml:"static_sag"`
	DampingRatio float32 `json:"damping_ratio" yaml:"damping_ratio"`

	DriveLayout string `json:"drive_layout" yaml:"drive_layout"`

	// PneumaticTrail shifts the lateral application point forward to model
	// self-aligning torque. Zero disables the offset.
	PneumaticTrail float32 `json:"pneumatic_trail" yaml:"pneumatic_trail"`
}

// FzRef returns the reference per-wheel static load m*g/4.
func (c *Config) FzRef() float32 {
	if c == nil {
		return 0
	}
	return c.Mass * Gravity / 4
}

// driven reports whether the layout routes engine torque to the wheel.
func (c *Config) driven(id tire.WheelId) bool {
	switch c.DriveLayout {
	case LayoutFWD:
		return id.IsFront()
	case LayoutAWD:
		return true
	default:
		return id.IsRear()
	}
}

// clampLoaded bounds every field into its documented range. Invalid presets do
// not fail; they are coerced so the tick path never sees garbage.
func (c *Config) clampLoaded() {
	if c == nil {
		return
	}
	//1.- Mass, actuator forces, and damping must stay physical.
	c.Mass = mathx.Clamp(c.Mass, 100, 100000)
	c.EngineForce = mathx.Clamp(c.EngineForce, 0, 200000)
	c.BrakeForce = mathx.Clamp(c.BrakeForce, 0, 200000)
	c.MaxSpeed = mathx.Clamp(c.MaxSpeed, 1, 200)
	c.LinearDamping = mathx.Clamp(c.LinearDamping, 0, 10)
	c.AngularDamping = mathx.Clamp(c.AngularDamping, 0, 10)

	//2.- Geometry ranges keep the steering and suspension math well conditioned.
	c.Wheelbase = mathx.Clamp(c.Wheelbase, 0.5, 10)
	c.TrackWidth = mathx.Clamp(c.TrackWidth, 0.5, 5)
	c.MaxSteerAngle = mathx.Clamp(c.MaxSteerAngle, 0.05, 1.2)
	c.Ackermann = mathx.Clamp01(c.Ackermann)
	for i := range c.ChassisHalfExtents {
		c.ChassisHalfExtents[i] = mathx.Clamp(c.ChassisHalfExtents[i], 0.05, 5)
	}
	for i := range c.ChassisCOMOffset {
		c.ChassisCOMOffset[i] = mathx.Clamp(c.ChassisCOMOffset[i], -2, 2)
	}

	//3.- Friction, anti-roll, and assist thresholds.
	c.ARBFront = mathx.Clamp(c.ARBFront, 0, 200000)
	c.ARBRear = mathx.Clamp(c.ARBRear, 0, 200000)
	c.MuBase = mathx.Clamp(c.MuBase, 0.05, 5)
	if c.BrakeBias == 0 {
		c.BrakeBias = 0.6
	}
	c.BrakeBias = mathx.Clamp(c.BrakeBias, 0.2, 0.8)
	c.LoadSensitivity = mathx.Clamp01(c.LoadSensitivity)
	c.ABSNxLimit = mathx.Clamp01(c.ABSNxLimit)
	c.TCSNxLimit = mathx.Clamp01(c.TCSNxLimit)

	//4.- Wheel and suspension geometry with conservative fallbacks.
	c.WheelRadius = mathx.Clamp(c.WheelRadius, 0.05, 1)
	c.RestLength = mathx.Clamp(c.RestLength, 0.05, 1.5)
	c.MaxTravel = mathx.Clamp(c.MaxTravel, 0.02, 1)
	c.StaticSag = mathx.Clamp(c.StaticSag, 0.005, c.MaxTravel)
	c.DampingRatio = mathx.Clamp(c.DampingRatio, 0.05, 2)

	switch c.DriveLayout {
	case LayoutRWD, LayoutFWD, LayoutAWD:
	default:
		c.DriveLayout = LayoutRWD
	}

	c.PneumaticTrail = mathx.Clamp(c.PneumaticTrail, 0, 0.2)
}

//go:embed gt86.json
var gt86Payload []byte

var (
	gt86Once sync.Once
	gt86Data Config
	gt86Err  error
)

// GT86 exposes the cached default preset to the dynamics systems.
func GT86() Config {
	gt86Once.Do(func() {
		//1.- Parse the embedded JSON payload exactly once in a threadsafe manner.
		gt86Err = json.Unmarshal(gt86Payload, &gt86Data)
		gt86Data.clampLoaded()
	})
	//2.- Panic immediately when the configuration cannot be decoded to avoid silent divergence.
	if gt86Err != nil {
		panic(gt86Err)
	}
	//3.- Return a copy of the cached preset so callers cannot mutate shared state.
	return gt86Data
}
