package gcode

import (
	"math"

	"github.com/amken3d/gopper-motion/config"
	"github.com/amken3d/gopper-motion/planner"
	"github.com/amken3d/gopper-motion/trapq"
)

// MoveQueue is the scheduler-side collaborator Interpreter hands planned
// moves to: cmd/stepsim wires this to its DDA queue and stepgen dispatch.
type MoveQueue interface {
	QueueDDA(dda *trapq.DDA) error
	GetCurrentPosition() config.Position
	SetPosition(pos config.Position)
}

// Interpreter executes G-code commands against a machine configuration,
// turning G0/G1 moves into planned DDAs via planner.PlanMove.
type Interpreter struct {
	state *config.MachineState
	cfg   *config.MachineConfig
	queue MoveQueue
}

// NewInterpreter creates a new G-code interpreter.
func NewInterpreter(cfg *config.MachineConfig, queue MoveQueue) *Interpreter {
	return &Interpreter{
		state: &config.MachineState{
			Position:     config.Position{},
			Homed:        [4]bool{false, false, false, false},
			AbsoluteMode: true,
			FeedRate:     cfg.DefaultVelocity,
			ExtrudeMode:  false,
			Temperature:  make(map[string]float64),
			TargetTemp:   make(map[string]float64),
		},
		cfg:   cfg,
		queue: queue,
	}
}

// Execute executes a parsed G-code command.
func (interp *Interpreter) Execute(cmd *Command) error {
	if cmd == nil {
		return nil
	}

	switch cmd.Type {
	case 'G':
		return interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	case 'T':
		return interp.executeT(cmd)
	}

	return nil
}

// executeG handles G-codes.
func (interp *Interpreter) executeG(cmd *Command) error {
	switch cmd.Number {
	case 0, 1: // G0/G1 - Linear move
		return interp.doMove(cmd)
	case 28: // G28 - Home
		return interp.doHome(cmd)
	case 90: // G90 - Absolute positioning
		interp.state.AbsoluteMode = true
	case 91: // G91 - Relative positioning
		interp.state.AbsoluteMode = false
	case 92: // G92 - Set position
		return interp.doSetPosition(cmd)
	}

	return nil
}

// executeM handles M-codes.
func (interp *Interpreter) executeM(cmd *Command) error {
	switch cmd.Number {
	case 82: // M82 - Absolute extrusion
		interp.state.ExtrudeMode = false
	case 83: // M83 - Relative extrusion
		interp.state.ExtrudeMode = true
	case 104: // M104 - Set extruder temperature
		if cmd.HasParameter('S') {
			interp.state.TargetTemp["extruder"] = cmd.GetParameter('S', 0)
		}
	case 109: // M109 - Set extruder temperature and wait
		if cmd.HasParameter('S') {
			interp.state.TargetTemp["extruder"] = cmd.GetParameter('S', 0)
			// TODO: wait for temperature once the thermal model exists
		}
	case 140: // M140 - Set bed temperature
		if cmd.HasParameter('S') {
			interp.state.TargetTemp["bed"] = cmd.GetParameter('S', 0)
		}
	case 190: // M190 - Set bed temperature and wait
		if cmd.HasParameter('S') {
			interp.state.TargetTemp["bed"] = cmd.GetParameter('S', 0)
			// TODO: wait for temperature once the thermal model exists
		}
	case 114: // M114 - Get current position
		// TODO: report position over the host interface
	case 105: // M105 - Get temperature
		// TODO: report temperature once the thermal model exists
	}

	return nil
}

// executeT handles tool changes.
func (interp *Interpreter) executeT(cmd *Command) error {
	// TODO: implement tool change once multi-extruder configs exist
	return nil
}

// doMove executes a linear move (G0/G1).
func (interp *Interpreter) doMove(cmd *Command) error {
	current := interp.queue.GetCurrentPosition()
	target := current

	if cmd.HasParameter('F') {
		interp.state.FeedRate = cmd.GetParameter('F', 0) / 60.0 // mm/min -> mm/s
	}

	if interp.state.AbsoluteMode {
		if cmd.HasParameter('X') {
			target.X = cmd.GetParameter('X', current.X)
		}
		if cmd.HasParameter('Y') {
			target.Y = cmd.GetParameter('Y', current.Y)
		}
		if cmd.HasParameter('Z') {
			target.Z = cmd.GetParameter('Z', current.Z)
		}
	} else {
		if cmd.HasParameter('X') {
			target.X = current.X + cmd.GetParameter('X', 0)
		}
		if cmd.HasParameter('Y') {
			target.Y = current.Y + cmd.GetParameter('Y', 0)
		}
		if cmd.HasParameter('Z') {
			target.Z = current.Z + cmd.GetParameter('Z', 0)
		}
	}

	if cmd.HasParameter('E') {
		if interp.state.ExtrudeMode {
			target.E = current.E + cmd.GetParameter('E', 0)
		} else {
			target.E = cmd.GetParameter('E', current.E)
		}
	}

	dx := target.X - current.X
	dy := target.Y - current.Y
	dz := target.Z - current.Z
	de := target.E - current.E
	distance := math.Sqrt(dx*dx + dy*dy + dz*dz)

	if distance < 0.001 && math.Abs(de) < 0.001 {
		return nil
	}

	dda, err := planner.PlanMove(current, target, interp.state.FeedRate, interp.cfg.DefaultAccel, interp.cfg)
	if err != nil {
		return err
	}

	if err := interp.queue.QueueDDA(dda); err != nil {
		return err
	}
	interp.queue.SetPosition(target)
	return nil
}

// doHome executes homing (G28).
func (interp *Interpreter) doHome(cmd *Command) error {
	// TODO: drive toward configured endstops instead of assuming they're at 0.
	if !cmd.HasParameter('X') && !cmd.HasParameter('Y') && !cmd.HasParameter('Z') {
		interp.state.Homed = [4]bool{true, true, true, false}
		interp.queue.SetPosition(config.Position{X: 0, Y: 0, Z: 0, E: 0})
	} else {
		pos := interp.queue.GetCurrentPosition()
		if cmd.HasParameter('X') {
			interp.state.Homed[0] = true
			pos.X = 0
		}
		if cmd.HasParameter('Y') {
			interp.state.Homed[1] = true
			pos.Y = 0
		}
		if cmd.HasParameter('Z') {
			interp.state.Homed[2] = true
			pos.Z = 0
		}
		interp.queue.SetPosition(pos)
	}

	return nil
}

// doSetPosition sets the current position (G92) without issuing a move.
func (interp *Interpreter) doSetPosition(cmd *Command) error {
	current := interp.queue.GetCurrentPosition()

	if cmd.HasParameter('X') {
		current.X = cmd.GetParameter('X', 0)
	}
	if cmd.HasParameter('Y') {
		current.Y = cmd.GetParameter('Y', 0)
	}
	if cmd.HasParameter('Z') {
		current.Z = cmd.GetParameter('Z', 0)
	}
	if cmd.HasParameter('E') {
		current.E = cmd.GetParameter('E', 0)
	}

	interp.queue.SetPosition(current)
	return nil
}

// GetState returns the current machine state.
func (interp *Interpreter) GetState() *config.MachineState {
	return interp.state
}
