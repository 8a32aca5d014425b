package kinematics

import (
	"fmt"

	"github.com/amken3d/gopper-motion/config"
)

// CoreXY implements the H-bot/CoreXY belt transform: the A and B motors
// each drive a diagonal combination of X and Y travel, while Z and E stay
// direct-drive.
type CoreXY struct {
	cfg *config.MachineConfig
}

// NewCoreXY validates that X/Y/Z are configured and returns a CoreXY
// kinematics bound to cfg.
func NewCoreXY(cfg *config.MachineConfig) (*CoreXY, error) {
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := cfg.Axes[name]; !ok {
			return nil, fmt.Errorf("%w: %s", errAxisNotConfigured, name)
		}
	}
	return &CoreXY{cfg: cfg}, nil
}

// CalcPosition returns the A, B, Z, E drive positions: A = X+Y, B = X-Y.
func (k *CoreXY) CalcPosition(pos config.Position) ([]float64, error) {
	return []float64{pos.X + pos.Y, pos.X - pos.Y, pos.Z, pos.E}, nil
}

// GetAxisNames returns the drive names in CalcPosition's output order.
func (k *CoreXY) GetAxisNames() []string {
	return []string{"a", "b", "z", "e"}
}

// CheckLimits validates pos against the machine-space (X/Y/Z) travel
// limits; CoreXY's belt combination has no independent per-motor limit.
func (k *CoreXY) CheckLimits(pos config.Position) error {
	checks := []struct {
		name string
		v    float64
	}{
		{"x", pos.X}, {"y", pos.Y}, {"z", pos.Z},
	}
	for _, c := range checks {
		axis, ok := k.cfg.Axes[c.name]
		if !ok {
			continue
		}
		if c.v < axis.MinPosition || c.v > axis.MaxPosition {
			return fmt.Errorf("kinematics: %s position %.3f outside [%.3f, %.3f]", c.name, c.v, axis.MinPosition, axis.MaxPosition)
		}
	}
	return nil
}

// StepsPerMM implements stepgen.Platform. The A/B belt motors share the
// X/Y axes' configured step scale: a CoreXY machine calibrates steps/mm
// already accounting for the +/- combination.
func (k *CoreXY) StepsPerMM(drive uint8) float64 {
	switch drive {
	case 0:
		return StepsPerMM(k.cfg, "x")
	case 1:
		return StepsPerMM(k.cfg, "y")
	case 2:
		return StepsPerMM(k.cfg, "z")
	case 3:
		return StepsPerMM(k.cfg, "e")
	default:
		return 0
	}
}
