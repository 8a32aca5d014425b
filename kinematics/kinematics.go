// Package kinematics converts between machine (XYZE) coordinates and the
// per-drive coordinates the step-pulse scheduler walks: straight 1:1 for
// Cartesian, a rotated sum/difference for CoreXY, and tower-space distances
// for linear delta.
package kinematics

import (
	"errors"

	"github.com/amken3d/gopper-motion/config"
)

// Kinematics converts a machine-space target into per-drive positions and
// enforces the configured travel limits.
type Kinematics interface {
	// CalcPosition converts XYZE coordinates to drive positions, in the
	// same order as GetAxisNames.
	CalcPosition(pos config.Position) ([]float64, error)

	// GetAxisNames returns the names of the drives this kinematics
	// controls, in the order CalcPosition returns them.
	GetAxisNames() []string

	// CheckLimits validates that pos is within configured travel.
	CheckLimits(pos config.Position) error
}

// StepsPerMM reports the configured step scale for axis name, looked up
// from the same MachineConfig every Kinematics implementation wraps; it
// lets a Kinematics double as a stepgen.Platform.
func StepsPerMM(cfg *config.MachineConfig, name string) float64 {
	if axis, ok := cfg.Axes[name]; ok {
		return axis.StepsPerMM
	}
	return 0
}

var errAxisNotConfigured = errors.New("kinematics: required axis not configured")
