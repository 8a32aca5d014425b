// Package config holds the machine description the rest of the motion
// stack is configured from: per-axis electrical/kinematic limits, endstop
// and heater wiring, and the global feedrate/acceleration/junction-deviation
// defaults the planner falls back to.
package config

// Position is a position in machine coordinates (X/Y/Z travel plus the
// extruder's filament position).
type Position struct {
	X float64
	Y float64
	Z float64
	E float64
}

// AxisConfig describes one stepper's electrical and kinematic limits.
type AxisConfig struct {
	StepPin      string
	DirPin       string
	EnablePin    string
	StepsPerMM   float64
	MaxVelocity  float64 // mm/s
	MaxAccel     float64 // mm/s^2
	HomingVel    float64 // mm/s
	MinPosition  float64
	MaxPosition  float64
	InvertDir    bool
	InvertEnable bool
}

// EndstopConfig describes one endstop's wiring.
type EndstopConfig struct {
	Pin    string
	Invert bool
}

// HeaterConfig describes one heater/thermistor pair.
type HeaterConfig struct {
	SensorPin string
	HeaterPin string
	PID       [3]float64
	MinTemp   float64
	MaxTemp   float64
	MaxPower  float64
}

// DeltaGeometryConfig describes a linear-delta printer's tower layout.
type DeltaGeometryConfig struct {
	RadiusMM    float64
	DiagonalMM  float64
	TowerAngles [3]float64 // degrees, offset from the nominal 90/210/330 layout
	PrintHeight float64
}

// MachineConfig is the complete machine description: which kinematics to
// use, what's wired to which pin, and the motion defaults the planner
// applies when a G-code move doesn't specify its own feedrate.
type MachineConfig struct {
	Mode       string // "standalone" or "klipper"
	Kinematics string // "cartesian", "corexy", "delta"

	Axes     map[string]AxisConfig
	Endstops map[string]EndstopConfig
	Heaters  map[string]HeaterConfig
	Delta    DeltaGeometryConfig

	DefaultVelocity   float64
	DefaultAccel      float64
	JunctionDeviation float64

	PressureAdvanceK     float64
	PressureAdvanceSmoothTime float64
}

// MachineState is the interpreter's live view of the machine: current
// position, homing status, and modal G-code state (absolute/relative).
type MachineState struct {
	Position     Position
	Homed        [4]bool
	AbsoluteMode bool
	FeedRate     float64
	ExtrudeMode  bool
	Temperature  map[string]float64
	TargetTemp   map[string]float64
}
