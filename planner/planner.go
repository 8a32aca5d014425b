// Package planner converts a commanded move (start/end machine position)
// into a trapq.DDA: a trapezoidal (or triangular, if the move is too short
// to reach cruise speed) velocity profile broken into MoveSegment phases,
// the shape stepgen.DriveMovement walks to schedule individual steps.
package planner

import (
	"errors"
	"math"

	"github.com/amken3d/gopper-motion/config"
	"github.com/amken3d/gopper-motion/core"
	"github.com/amken3d/gopper-motion/trapq"
)

// ErrZeroMove is returned when start and end are identical on every axis.
var ErrZeroMove = errors.New("planner: move has zero distance")

// PlanMove builds the DDA for a move from start to end at the given
// cruise velocity and acceleration targets (mm/s, mm/s^2), clamped to each
// participating axis's configured limits the same way the teacher's
// calculateTrapezoid did before lookahead was added.
func PlanMove(start, end config.Position, velocity, accel float64, cfg *config.MachineConfig) (*trapq.DDA, error) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	dz := end.Z - start.Z
	de := end.E - start.E

	distance := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if distance == 0 && de == 0 {
		return nil, ErrZeroMove
	}

	dda := trapq.NewDDA()

	if distance > 0 {
		vel := clampVelocity(velocity, cfg, dx, dy, dz, distance)
		acc := clampAccel(accel, cfg, dx, dy, dz, distance)

		chain, ticks := buildTrapezoid(distance, vel, acc)
		dda.TotalDistance = distance
		dda.ClocksNeeded = ticks

		dda.DirectionVector[0] = dx / distance
		dda.DirectionVector[1] = dy / distance
		dda.DirectionVector[2] = dz / distance
		for i := 0; i < 3; i++ {
			dda.AxisSegments[i] = chain
		}

		if de != 0 {
			dda.DirectionVector[3] = de / distance
			dda.ExtruderSegments = chain
		}
		return dda, nil
	}

	// Pure extrude/retract: E moves independently of any XYZ travel, so it
	// gets its own trapezoid over |de| rather than sharing one.
	eAxis := cfg.Axes["e"]
	eVel := eAxis.MaxVelocity
	if eVel <= 0 {
		eVel = velocity
	}
	eAccel := eAxis.MaxAccel
	if eAccel <= 0 {
		eAccel = accel
	}

	chain, ticks := buildTrapezoid(math.Abs(de), eVel, eAccel)
	dda.TotalDistance = math.Abs(de)
	dda.ClocksNeeded = ticks
	dda.DirectionVector[3] = sign(de)
	dda.ExtruderSegments = chain
	return dda, nil
}

// clampVelocity limits vel so that no participating axis exceeds its own
// configured max velocity, scaling down proportionally to preserve the
// move's direction (grounded on the teacher's calculateTrapezoid).
func clampVelocity(vel float64, cfg *config.MachineConfig, dx, dy, dz, distance float64) float64 {
	limit := func(name string, component float64) {
		if component == 0 {
			return
		}
		axis, ok := cfg.Axes[name]
		if !ok {
			return
		}
		axisVel := vel * math.Abs(component) / distance
		if axisVel > axis.MaxVelocity {
			vel = axis.MaxVelocity * distance / math.Abs(component)
		}
	}
	limit("x", dx)
	limit("y", dy)
	limit("z", dz)
	return vel
}

// clampAccel mirrors clampVelocity for acceleration.
func clampAccel(accel float64, cfg *config.MachineConfig, dx, dy, dz, distance float64) float64 {
	limit := func(name string, component float64) {
		if component == 0 {
			return
		}
		axis, ok := cfg.Axes[name]
		if !ok {
			return
		}
		axisAccel := accel * math.Abs(component) / distance
		if axisAccel > axis.MaxAccel {
			accel = axis.MaxAccel * distance / math.Abs(component)
		}
	}
	limit("x", dx)
	limit("y", dy)
	limit("z", dz)
	return accel
}

// buildTrapezoid lays out the accel/cruise/decel phases covering distance
// at cruise velocity vel and acceleration accel, starting and ending at
// rest. It returns the segment chain (in total-path mm/clocks) and the
// move's total duration in clocks.
func buildTrapezoid(distance, vel, accel float64) (*trapq.MoveSegment, uint32) {
	if vel <= 0 {
		vel = 1
	}
	if accel <= 0 {
		accel = 1
	}

	accelDist := (vel * vel) / (2 * accel)

	var cruiseVel, accelDistUsed, cruiseDist, decelDist float64
	if accelDist*2 >= distance {
		// Triangle profile: never reaches the requested cruise velocity.
		accelDistUsed = distance / 2
		cruiseVel = math.Sqrt(2 * accel * accelDistUsed)
		cruiseDist = 0
		decelDist = accelDistUsed
	} else {
		accelDistUsed = accelDist
		cruiseVel = vel
		cruiseDist = distance - 2*accelDist
		decelDist = accelDist
	}

	accelTime := cruiseVel / accel
	cruiseTime := 0.0
	if cruiseDist > 0 {
		cruiseTime = cruiseDist / cruiseVel
	}
	decelTime := accelTime

	accelTicks := secondsToTicks(accelTime)
	cruiseTicks := secondsToTicks(cruiseTime)
	decelTicks := secondsToTicks(decelTime)

	// MoveSegment shapes are in mm/clock and mm/clock^2.
	velPerClock := cruiseVel / core.ClockFreq
	halfAccelPerClock2 := accel / 2 / (core.ClockFreq * core.ClockFreq)

	accelSeg := &trapq.MoveSegment{
		SegmentLength:  accelDistUsed,
		SegmentTime:    float64(accelTicks),
		IsAccelerating: true,
		StartVelocity:  0,
		HalfAccel:      halfAccelPerClock2,
	}
	tail := accelSeg

	if cruiseDist > 0 {
		cruiseSeg := &trapq.MoveSegment{
			SegmentLength: cruiseDist,
			SegmentTime:   float64(cruiseTicks),
			IsLinear:      true,
			StartVelocity: velPerClock,
		}
		tail.Next = cruiseSeg
		tail = cruiseSeg
	}

	decelSeg := &trapq.MoveSegment{
		SegmentLength:  decelDist,
		SegmentTime:    float64(decelTicks),
		IsAccelerating: false,
		IsLast:         true,
		StartVelocity:  velPerClock,
		HalfAccel:      -halfAccelPerClock2,
	}
	tail.Next = decelSeg

	return accelSeg, accelTicks + cruiseTicks + decelTicks
}

func secondsToTicks(seconds float64) uint32 {
	return uint32(seconds * core.ClockFreq)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
