package kinematics

import (
	"fmt"
	"math"

	"github.com/amken3d/gopper-motion/config"
)

// nominalTowerAngles is the symmetric 90/210/330 degree delta layout
// (towers 120 degrees apart); config.DeltaGeometryConfig.TowerAngles adds a per-tower
// calibration offset on top of these.
var nominalTowerAngles = [3]float64{90, 210, 330}

// Delta implements linear-delta inverse kinematics: each drive (tower A,
// B, C) rides a vertical rail, connected to the effector by a fixed-length
// diagonal rod. It also implements stepgen.DeltaGeometry so a DriveMovement
// can be prepared directly from it.
type Delta struct {
	cfg *config.MachineConfig

	towerX, towerY [3]float64
	diagonal2      [3]float64
}

// NewDelta validates that towers A/B/C are configured and precomputes
// their XY positions from the configured radius and tower angles.
func NewDelta(cfg *config.MachineConfig) (*Delta, error) {
	for _, name := range []string{"a", "b", "c"} {
		if _, ok := cfg.Axes[name]; !ok {
			return nil, fmt.Errorf("%w: %s", errAxisNotConfigured, name)
		}
	}

	d := &Delta{cfg: cfg}
	diag2 := cfg.Delta.DiagonalMM * cfg.Delta.DiagonalMM
	for i := 0; i < 3; i++ {
		angle := (nominalTowerAngles[i] + cfg.Delta.TowerAngles[i]) * math.Pi / 180
		d.towerX[i] = cfg.Delta.RadiusMM * math.Cos(angle)
		d.towerY[i] = cfg.Delta.RadiusMM * math.Sin(angle)
		d.diagonal2[i] = diag2
	}
	return d, nil
}

// CalcPosition solves the inverse kinematics: for each tower, the carriage
// height that puts the effector at pos, given the fixed diagonal rod
// length. This is the same sqrt(d^2 - dx^2 - dy^2) + z form the stepgen
// delta-mode prepare step precomputes incrementally per move.
func (k *Delta) CalcPosition(pos config.Position) ([]float64, error) {
	out := make([]float64, 4)
	for i := 0; i < 3; i++ {
		dx := pos.X - k.towerX[i]
		dy := pos.Y - k.towerY[i]
		radicand := k.diagonal2[i] - dx*dx - dy*dy
		if radicand < 0 {
			return nil, fmt.Errorf("kinematics: position (%.3f, %.3f) unreachable by tower %d", pos.X, pos.Y, i)
		}
		out[i] = pos.Z + math.Sqrt(radicand)
	}
	out[3] = pos.E
	return out, nil
}

// GetAxisNames returns the drive names in CalcPosition's output order.
func (k *Delta) GetAxisNames() []string {
	return []string{"a", "b", "c", "e"}
}

// CheckLimits rejects positions outside the printable cylinder (a
// conservative radius margin under the tower radius) and outside the
// configured print height.
func (k *Delta) CheckLimits(pos config.Position) error {
	r := math.Hypot(pos.X, pos.Y)
	printable := k.cfg.Delta.RadiusMM - k.cfg.Delta.DiagonalMM*0.1
	if r > printable {
		return fmt.Errorf("kinematics: radius %.3f exceeds printable envelope %.3f", r, printable)
	}
	if pos.Z < 0 || pos.Z > k.cfg.Delta.PrintHeight {
		return fmt.Errorf("kinematics: z position %.3f outside [0, %.3f]", pos.Z, k.cfg.Delta.PrintHeight)
	}
	return nil
}

// StepsPerMM implements stepgen.Platform.
func (k *Delta) StepsPerMM(drive uint8) float64 {
	switch drive {
	case 0:
		return StepsPerMM(k.cfg, "a")
	case 1:
		return StepsPerMM(k.cfg, "b")
	case 2:
		return StepsPerMM(k.cfg, "c")
	case 3:
		return StepsPerMM(k.cfg, "e")
	default:
		return 0
	}
}

// TowerX, TowerY and Diagonal2 implement stepgen.DeltaGeometry.
func (k *Delta) TowerX(drive uint8) float64 {
	if int(drive) < 3 {
		return k.towerX[drive]
	}
	return 0
}

func (k *Delta) TowerY(drive uint8) float64 {
	if int(drive) < 3 {
		return k.towerY[drive]
	}
	return 0
}

func (k *Delta) Diagonal2(drive uint8) float64 {
	if int(drive) < 3 {
		return k.diagonal2[drive]
	}
	return 0
}
