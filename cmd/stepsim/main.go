// Command stepsim drives the motion stack end to end from the command line:
// it loads a machine configuration, accepts G-code-shaped move commands in
// an interactive loop, plans each one, and prints the resulting per-drive
// step timeline the way the real step ISR would see it.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/amken3d/gopper-motion/config"
	"github.com/amken3d/gopper-motion/core"
	"github.com/amken3d/gopper-motion/kinematics"
	"github.com/amken3d/gopper-motion/shaper"
	"github.com/amken3d/gopper-motion/standalone/gcode"
	"github.com/amken3d/gopper-motion/stepgen"
	"github.com/amken3d/gopper-motion/trapq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	kinematicsF string
	verbose     bool
)

func main() {
	root := &cobra.Command{
		Use:   "stepsim",
		Short: "Simulate the DriveMovement step-pulse scheduler from the command line",
		RunE:  runREPL,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a JSON machine config (default: built-in Cartesian profile)")
	root.Flags().StringVar(&kinematicsF, "kinematics", "", "override the config's kinematics (cartesian|corexy|delta)")
	root.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runREPL(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		logger = l
	}
	core.SetLogger(logger)

	sim, err := newSimulator()
	if err != nil {
		return err
	}

	fmt.Println("gopper-motion step simulator")
	fmt.Println("Enter G-code lines (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printHelp()
			continue
		case "position":
			pos := sim.current
			fmt.Printf("X%.3f Y%.3f Z%.3f E%.3f\n", pos.X, pos.Y, pos.Z, pos.E)
			continue
		}

		gcmd, err := sim.parser.ParseLine(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
			continue
		}
		if gcmd == nil || gcmd.Comment != "" {
			continue
		}
		if err := sim.interp.Execute(gcmd); err != nil {
			fmt.Fprintf(os.Stderr, "move error: %v\n", err)
		}
	}

	return scanner.Err()
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  G0/G1 X.. Y.. Z.. E.. F..  - plan and simulate a linear move, print its step timeline")
	fmt.Println("  G28 [X] [Y] [Z]            - home (no endstop model; snaps to 0)")
	fmt.Println("  G92 X.. Y.. Z.. E..        - set the current position without moving")
	fmt.Println("  position                   - print the current machine position")
	fmt.Println("  help                       - show this help message")
	fmt.Println("  quit                       - exit the program")
	fmt.Println()
}

// simulator holds the live machine state the REPL commands operate on: the
// configured kinematics/platform, a long-lived DriveMovement pool, and the
// last-commanded position. It implements gcode.MoveQueue so an Interpreter
// can drive it directly: QueueDDA is where a planned move actually gets
// simulated and its step timeline printed.
type simulator struct {
	cfg    *config.MachineConfig
	kin    kinematics.Kinematics
	pool   *stepgen.Pool
	shaper *shaper.PressureAdvance
	parser *gcode.Parser
	interp *gcode.Interpreter

	current config.Position
}

func newSimulator() (*simulator, error) {
	var cfg *config.MachineConfig
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg, err = config.Load(data)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultCartesianConfig()
	}
	if kinematicsF != "" {
		cfg.Kinematics = kinematicsF
	}

	kin, err := buildKinematics(cfg)
	if err != nil {
		return nil, err
	}

	pool := stepgen.NewPool()
	pool.InitialAllocate(4)

	sim := &simulator{
		cfg:    cfg,
		kin:    kin,
		pool:   pool,
		shaper: shaper.NewPressureAdvance(cfg.PressureAdvanceK, cfg.PressureAdvanceSmoothTime),
		parser: gcode.NewParser(),
	}
	sim.interp = gcode.NewInterpreter(cfg, sim)
	return sim, nil
}

func buildKinematics(cfg *config.MachineConfig) (kinematics.Kinematics, error) {
	switch cfg.Kinematics {
	case "delta":
		return kinematics.NewDelta(cfg)
	case "corexy":
		return kinematics.NewCoreXY(cfg)
	default:
		return kinematics.NewCartesian(cfg)
	}
}

// QueueDDA implements gcode.MoveQueue: it's the point where a move the
// Interpreter planned from a G0/G1 line actually gets simulated and its
// step timeline printed, rather than handed to real hardware.
func (s *simulator) QueueDDA(dda *trapq.DDA) error {
	target := s.current
	target.X += dda.TotalDistance * dda.DirectionVector[0]
	target.Y += dda.TotalDistance * dda.DirectionVector[1]
	target.Z += dda.TotalDistance * dda.DirectionVector[2]
	if err := s.kin.CheckLimits(target); err != nil {
		return err
	}

	events, err := s.simulateDDA(dda)
	if err != nil {
		return err
	}

	fmt.Printf("move %s (%d clocks, %d steps):\n", dda.ID, dda.ClocksNeeded, len(events))
	for _, evt := range events {
		dir := "+"
		if !evt.Direction {
			dir = "-"
		}
		flip := ""
		if evt.DirectionChanged {
			flip = " (direction change)"
		}
		fmt.Printf("  t=%-10d drive=%d dir=%s%s\n", evt.Time, evt.Drive, dir, flip)
	}

	return nil
}

// GetCurrentPosition implements gcode.MoveQueue.
func (s *simulator) GetCurrentPosition() config.Position { return s.current }

// SetPosition implements gcode.MoveQueue: the Interpreter calls this once a
// queued move (or a bare G92/G28) has taken effect.
func (s *simulator) SetPosition(pos config.Position) { s.current = pos }

// simulateDDA prepares a DriveMovement per drive the kinematics exposes and
// drains them through a core.StepClock, the same shared dispatcher pattern
// the real step ISR follows: one source per drive, merged by due-time.
//
// planner.PlanMove always builds its shared chain in machine-space X/Y/Z
// distance; walking it straight through DirectionVector[i] is exact for
// Cartesian and Delta (drive i's travel is a 1:1 or tower-space function of
// axis i alone). CoreXY's A/B belt motors are a linear combination of X and
// Y and would need their own mixed chain to step correctly; this CLI
// exercises CoreXY's CalcPosition/StepsPerMM but does not attempt that
// mixed-chain correction, so a CoreXY move's printed timeline reflects the
// unmixed X/Y chains rather than true belt motor steps.
func (s *simulator) simulateDDA(dda *trapq.DDA) ([]core.StepEvent, error) {
	clock := core.NewStepClock()
	var allocated []*stepgen.DriveMovement

	release := func() {
		for _, dm := range allocated {
			s.pool.Release(dm)
		}
	}

	names := s.kin.GetAxisNames()
	for i, name := range names {
		if name == "e" {
			continue
		}
		if dda.AxisSegments[i] == nil {
			continue
		}
		dm := s.pool.Allocate(uint8(i), stepgen.StateIdle)
		allocated = append(allocated, dm)

		var ok bool
		if geom, isDelta := s.kin.(stepgen.DeltaGeometry); isDelta {
			params := stepgen.DeltaMoveParams{
				InitialX:   s.current.X,
				InitialY:   s.current.Y,
				Dx:         dda.DirectionVector[0],
				Dy:         dda.DirectionVector[1],
				Dz:         dda.DirectionVector[2],
				A2PlusB2:   dda.DirectionVector[0]*dda.DirectionVector[0] + dda.DirectionVector[1]*dda.DirectionVector[1],
				StepsPerMM: s.kin.(stepgen.Platform).StepsPerMM(uint8(i)),
			}
			ok = dm.PrepareDeltaAxis(dda, i, geom, params)
		} else {
			ok = dm.PrepareCartesianAxis(dda, i, s.kin.(stepgen.Platform))
		}
		if ok {
			clock.Add(stepSource{dm})
		}
	}

	if dda.ExtruderSegments != nil {
		dm := s.pool.Allocate(uint8(len(names)-1), stepgen.StateIdle)
		allocated = append(allocated, dm)
		if dm.PrepareExtruder(dda, s.kin.(stepgen.Platform), s.shaper) {
			clock.Add(stepSource{dm})
		}
	}

	events := clock.Run()
	release()
	return events, nil
}

// stepSource adapts stepgen.DriveMovement to core.Source.
type stepSource struct {
	dm *stepgen.DriveMovement
}

func (s stepSource) NextStepTime() uint32   { return s.dm.NextStepTime() }
func (s stepSource) Direction() bool        { return s.dm.Direction() }
func (s stepSource) DirectionChanged() bool { return s.dm.DirectionChanged() }
func (s stepSource) Drive() uint8           { return s.dm.Drive() }

func (s stepSource) Step() bool {
	ok, serr := s.dm.CalcNextStepTime()
	if serr != nil {
		core.Sugar().Errorw("drive entered step_error", "drive", s.dm.Drive(), "err", serr)
		return false
	}
	return ok
}
