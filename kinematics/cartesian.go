package kinematics

import (
	"fmt"

	"github.com/amken3d/gopper-motion/config"
)

// Cartesian is a direct 1:1 XYZE-to-drive mapping.
type Cartesian struct {
	cfg *config.MachineConfig
}

// NewCartesian validates that X/Y/Z are configured and returns a Cartesian
// kinematics bound to cfg.
func NewCartesian(cfg *config.MachineConfig) (*Cartesian, error) {
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := cfg.Axes[name]; !ok {
			return nil, fmt.Errorf("%w: %s", errAxisNotConfigured, name)
		}
	}
	return &Cartesian{cfg: cfg}, nil
}

// CalcPosition returns X, Y, Z, E unchanged: Cartesian drives move exactly
// as far as the commanded axis.
func (k *Cartesian) CalcPosition(pos config.Position) ([]float64, error) {
	return []float64{pos.X, pos.Y, pos.Z, pos.E}, nil
}

// GetAxisNames returns the drive names in CalcPosition's output order.
func (k *Cartesian) GetAxisNames() []string {
	return []string{"x", "y", "z", "e"}
}

// CheckLimits validates pos against each configured axis's travel.
func (k *Cartesian) CheckLimits(pos config.Position) error {
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

// StepsPerMM implements stepgen.Platform: the per-drive effective step
// scale Cartesian mode needs, looked up by drive index (0=X,1=Y,2=Z,3=E).
func (k *Cartesian) StepsPerMM(drive uint8) float64 {
	names := k.GetAxisNames()
	if int(drive) >= len(names) {
		return 0
	}
	return StepsPerMM(k.cfg, names[drive])
}
