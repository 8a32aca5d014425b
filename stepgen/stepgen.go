// Package stepgen implements the per-drive step-pulse scheduler: given a
// planned move (a trapq.DDA and its MoveSegment chains), it determines the
// exact due-time of every individual step pulse for one physical motor.
//
// DriveMovement is the only stateful type here; everything it reads
// (segments, geometry, pressure advance) is supplied by the caller.
package stepgen

import "github.com/amken3d/gopper-motion/trapq"

// Platform supplies per-drive physical constants the scheduler itself does
// not own (spec's "platform layer" boundary).
type Platform interface {
	StepsPerMM(drive uint8) float64
}

// Shaper supplies the extruder's pressure-advance state (spec's "extruder
// shaper" boundary).
type Shaper interface {
	K() float64
	ExtrusionPending() float64
}

// DeltaGeometry supplies tower positions and rod lengths for delta mode
// (spec's "kinematics tables" boundary).
type DeltaGeometry interface {
	TowerX(drive uint8) float64
	TowerY(drive uint8) float64
	Diagonal2(drive uint8) float64
}

// DeltaMoveParams carries the per-move geometry inputs PrepareDeltaAxis
// needs beyond the DDA itself: the effector's starting XY position and the
// move's direction-vector-derived scalars.
type DeltaMoveParams struct {
	InitialX, InitialY float64
	Dx, Dy, Dz         float64 // unit direction components
	A2PlusB2           float64 // dx^2+dy^2 term the caller has already reduced
	StepsPerMM         float64
}

// State is the DriveMovement FSM state (spec.md §4.3).
type State int

const (
	StateIdle State = iota
	StateStepError
	StateCartAccel
	StateCartLinear
	StateCartDecelForwards
	StateCartDecelReverse
	StateDeltaForwards
	StateDeltaReverse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStepError:
		return "step_error"
	case StateCartAccel:
		return "cart_accel"
	case StateCartLinear:
		return "cart_linear"
	case StateCartDecelForwards:
		return "cart_decel_forwards"
	case StateCartDecelReverse:
		return "cart_decel_reverse"
	case StateDeltaForwards:
		return "delta_forwards"
	case StateDeltaReverse:
		return "delta_reverse"
	default:
		return "unknown"
	}
}

// Tuning parameters (spec.md §6). Platform-specific in a real firmware
// build; fixed defaults here since the host has no real timer jitter to
// tune against.
const (
	MinCalcIntervalCartesian uint32 = 50 // clocks
	MinCalcIntervalDelta     uint32 = 50 // clocks

	lateSentinel = ^uint32(0) >> 1 // "no interval observed yet"
)

// EvenSteps is a reserved platform tuning knob (spec.md §6) for biasing a
// multi-step batch's recovered first-step time toward uniform spacing.
// The batch-start correction itself is unconditional (kernel.go); this
// toggle has no effect yet and exists so a platform profile can opt into a
// bias without an API change once one is needed. A package var rather than
// a per-instance field: it is platform-wide, not move state.
var EvenSteps = false

// cartParams is the Cartesian/extruder sub-record (spec.md §3).
type cartParams struct {
	pressureAdvanceK     float64
	effectiveStepsPerMM  float64
	extruderSpeed        float64
	extruderReverseSteps uint32
	extrusionBroughtFwd  float64
}

// deltaParams is the delta sub-record (spec.md §3).
type deltaParams struct {
	fTwoA                        float64
	fTwoB                        float64
	h0MinusZ0                    float64
	fDSqMinusASqMinusBSqTimesSSq float64

	fHmz0s               float64
	fMinusAAPlusBBTimesS float64

	dx, dy, dz float64
	stepsPerMM float64
}

// DriveMovement is the per-drive state machine (spec.md §3). Instances are
// long-lived and reused via Pool; fields are reinitialised by Prepare* and
// never reset implicitly.
type DriveMovement struct {
	state            State
	drive            uint8
	direction        bool
	directionChanged bool

	isDelta    bool
	isExtruder bool

	totalSteps        uint32
	nextStep          uint32
	segmentStepLimit  uint32
	reverseStartStep  uint32
	nextStepTime      uint32
	stepInterval      uint32
	stepsTillRecalc   uint32

	currentSegment *trapq.MoveSegment

	// segIsLinear/segIsAccelerating describe currentSegment's own kinematic
	// shape; delta mode needs these to pick the step-time formula form since
	// its FSM state (delta_forwards/delta_reverse) tracks carriage travel
	// direction, not the segment's accel/cruise/decel phase.
	segIsLinear       bool
	segIsAccelerating bool

	distanceSoFar float64
	timeSoFar     float64

	pA, pB, pC float64

	effectiveMmPerStep float64

	cart  cartParams
	delta deltaParams

	dda *trapq.DDA

	next *DriveMovement // intrusive link: free list or active-ISR chain
}

// Drive reports which physical motor this instance drives.
func (dm *DriveMovement) Drive() uint8 { return dm.drive }

// State reports the current FSM state.
func (dm *DriveMovement) State() State { return dm.state }

// Direction reports the current rotation direction (forward = true).
func (dm *DriveMovement) Direction() bool { return dm.direction }

// DirectionChanged reports whether the most recent step flipped direction.
func (dm *DriveMovement) DirectionChanged() bool { return dm.directionChanged }

// NextStepTime reports the due-time of the step about to be issued.
func (dm *DriveMovement) NextStepTime() uint32 { return dm.nextStepTime }

// TotalSteps reports the stored total_steps value, which is one less than
// this move's step count for the drive (may have been adjusted by a delta
// reversal); next_step reaches TotalSteps()+1 on the last step.
func (dm *DriveMovement) TotalSteps() uint32 { return dm.totalSteps }
