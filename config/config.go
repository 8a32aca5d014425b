package config

import (
	"encoding/json"
	"fmt"
)

// Load parses a JSON machine description and fills in defaults for
// anything the caller left zero-valued.
func Load(jsonData []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("parse machine config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *MachineConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "standalone"
	}
	if cfg.Kinematics == "" {
		cfg.Kinematics = "cartesian"
	}
	if cfg.DefaultVelocity == 0 {
		cfg.DefaultVelocity = 50.0
	}
	if cfg.DefaultAccel == 0 {
		cfg.DefaultAccel = 500.0
	}
	if cfg.JunctionDeviation == 0 {
		cfg.JunctionDeviation = 0.05
	}
	if cfg.PressureAdvanceSmoothTime == 0 {
		cfg.PressureAdvanceSmoothTime = 0.04
	}

	for name, axis := range cfg.Axes {
		if axis.MaxVelocity == 0 {
			axis.MaxVelocity = 300.0
		}
		if axis.MaxAccel == 0 {
			axis.MaxAccel = 1000.0
		}
		if axis.HomingVel == 0 {
			axis.HomingVel = 5.0
		}
		if axis.StepsPerMM == 0 {
			axis.StepsPerMM = 80.0
		}
		cfg.Axes[name] = axis
	}

	for name, heater := range cfg.Heaters {
		if heater.MaxTemp == 0 {
			heater.MaxTemp = 300.0
		}
		if heater.MaxPower == 0 {
			heater.MaxPower = 1.0
		}
		cfg.Heaters[name] = heater
	}

	if cfg.Kinematics == "delta" {
		if cfg.Delta.RadiusMM == 0 {
			cfg.Delta.RadiusMM = 140.0
		}
		if cfg.Delta.DiagonalMM == 0 {
			cfg.Delta.DiagonalMM = 250.0
		}
		if cfg.Delta.PrintHeight == 0 {
			cfg.Delta.PrintHeight = 300.0
		}
	}
}

// DefaultCartesianConfig is a ready-to-use configuration for a bed-slinger
// style Cartesian printer, used by tests and the stepsim CLI's default
// profile.
func DefaultCartesianConfig() *MachineConfig {
	return &MachineConfig{
		Mode:       "standalone",
		Kinematics: "cartesian",
		Axes: map[string]AxisConfig{
			"x": {StepPin: "gpio0", DirPin: "gpio1", EnablePin: "gpio8", StepsPerMM: 80.0, MaxVelocity: 300.0, MaxAccel: 3000.0, HomingVel: 50.0, MinPosition: 0, MaxPosition: 220.0},
			"y": {StepPin: "gpio2", DirPin: "gpio3", EnablePin: "gpio8", StepsPerMM: 80.0, MaxVelocity: 300.0, MaxAccel: 3000.0, HomingVel: 50.0, MinPosition: 0, MaxPosition: 220.0},
			"z": {StepPin: "gpio4", DirPin: "gpio5", EnablePin: "gpio8", StepsPerMM: 400.0, MaxVelocity: 10.0, MaxAccel: 100.0, HomingVel: 5.0, MinPosition: 0, MaxPosition: 250.0},
			"e": {StepPin: "gpio6", DirPin: "gpio7", EnablePin: "gpio8", StepsPerMM: 96.0, MaxVelocity: 50.0, MaxAccel: 5000.0, HomingVel: 0, MinPosition: -10000.0, MaxPosition: 10000.0},
		},
		Endstops: map[string]EndstopConfig{
			"x": {Pin: "gpio20"},
			"y": {Pin: "gpio21"},
			"z": {Pin: "gpio22"},
		},
		Heaters: map[string]HeaterConfig{
			"extruder": {SensorPin: "ADC0", HeaterPin: "gpio10", PID: [3]float64{0.1, 0.5, 0.05}, MaxTemp: 300.0, MaxPower: 1.0},
			"bed":      {SensorPin: "ADC1", HeaterPin: "gpio11", PID: [3]float64{0.2, 1.0, 0.1}, MaxTemp: 150.0, MaxPower: 1.0},
		},
		DefaultVelocity:           50.0,
		DefaultAccel:              500.0,
		JunctionDeviation:         0.05,
		PressureAdvanceSmoothTime: 0.04,
	}
}

// DefaultDeltaConfig is a ready-to-use configuration for a linear-delta
// printer, exercising the stepgen delta-mode path.
func DefaultDeltaConfig() *MachineConfig {
	return &MachineConfig{
		Mode:       "standalone",
		Kinematics: "delta",
		Axes: map[string]AxisConfig{
			"a": {StepPin: "gpio0", DirPin: "gpio1", StepsPerMM: 80.0, MaxVelocity: 300.0, MaxAccel: 3000.0, MinPosition: 0, MaxPosition: 300.0},
			"b": {StepPin: "gpio2", DirPin: "gpio3", StepsPerMM: 80.0, MaxVelocity: 300.0, MaxAccel: 3000.0, MinPosition: 0, MaxPosition: 300.0},
			"c": {StepPin: "gpio4", DirPin: "gpio5", StepsPerMM: 80.0, MaxVelocity: 300.0, MaxAccel: 3000.0, MinPosition: 0, MaxPosition: 300.0},
			"e": {StepPin: "gpio6", DirPin: "gpio7", StepsPerMM: 96.0, MaxVelocity: 50.0, MaxAccel: 5000.0, MinPosition: -10000.0, MaxPosition: 10000.0},
		},
		Delta:                     DeltaGeometryConfig{RadiusMM: 140.0, DiagonalMM: 250.0, PrintHeight: 300.0},
		DefaultVelocity:           150.0,
		DefaultAccel:              2000.0,
		JunctionDeviation:         0.05,
		PressureAdvanceSmoothTime: 0.04,
	}
}
