package stepgen

import (
	"testing"

	"github.com/amken3d/gopper-motion/trapq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

type fakePlatform struct {
	stepsPerMM map[uint8]float64
}

func (p fakePlatform) StepsPerMM(drive uint8) float64 { return p.stepsPerMM[drive] }

type fakeShaper struct {
	k       float64
	pending float64
}

func (s fakeShaper) K() float64                 { return s.k }
func (s fakeShaper) ExtrusionPending() float64   { return s.pending }

// linearDDA builds a single-segment linear move: distance steps at 1mm/step,
// step_interval = stepInterval clocks, running for exactly clocksNeeded.
func linearDDA(steps uint32, stepInterval uint32) *trapq.DDA {
	dda := trapq.NewDDA()
	dda.TotalDistance = float64(steps)
	dda.ClocksNeeded = steps * stepInterval
	dda.DirectionVector[0] = 1
	seg := &trapq.MoveSegment{
		IsLinear:      true,
		StartVelocity: 1.0 / float64(stepInterval),
		SegmentLength: float64(steps),
		SegmentTime:   float64(dda.ClocksNeeded),
	}
	dda.AppendAxisSegment(0, seg)
	return dda
}

// Scenario 1: 100-step single-segment linear move, pB=10, pC=0; step k due
// at 10*k, final next_step_time == 1000, no error.
func TestCartesianSingleSegmentLinearMove(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	platform := fakePlatform{stepsPerMM: map[uint8]float64{0: 1}}

	dda := linearDDA(100, 10)
	require.True(t, dm.PrepareCartesianAxis(dda, 0, platform))
	assert.Equal(t, StateCartLinear, dm.State())

	for k := uint32(2); k <= 100; k++ {
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		require.True(t, ok)
		assert.Equal(t, 10*k, dm.NextStepTime())
	}

	ok, serr := dm.CalcNextStepTime()
	require.NoError(t, serr)
	assert.False(t, ok)
	assert.Equal(t, StateIdle, dm.State())
	assert.Equal(t, dm.TotalSteps()+1, dm.nextStep)
}

// Scenario 2: accel + cruise + decel move; verify the FSM walks through all
// three states at the segment boundaries with no late-step error.
func TestCartesianTrapezoidTransitionsStates(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	platform := fakePlatform{stepsPerMM: map[uint8]float64{0: 1}}

	dda := trapq.NewDDA()
	dda.DirectionVector[0] = 1
	accel := &trapq.MoveSegment{IsAccelerating: true, StartVelocity: 0, HalfAccel: 1, SegmentLength: 100, SegmentTime: 10}
	cruise := &trapq.MoveSegment{IsLinear: true, StartVelocity: 20, SegmentLength: 400, SegmentTime: 20}
	decel := &trapq.MoveSegment{IsAccelerating: false, StartVelocity: 20, HalfAccel: -1, SegmentLength: 100, SegmentTime: 10}
	dda.AppendAxisSegment(0, accel)
	dda.AppendAxisSegment(0, cruise)
	dda.AppendAxisSegment(0, decel)
	dda.TotalDistance = 600
	dda.ClocksNeeded = 40

	require.True(t, dm.PrepareCartesianAxis(dda, 0, platform))
	assert.Equal(t, StateCartAccel, dm.State())

	seenStates := map[State]bool{dm.State(): true}
	for {
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		if !ok {
			break
		}
		seenStates[dm.State()] = true
	}

	assert.True(t, seenStates[StateCartAccel])
	assert.True(t, seenStates[StateCartLinear])
	assert.True(t, seenStates[StateCartDecelForwards])
	assert.Equal(t, StateIdle, dm.State())
}

// Scenario 3: extruder with pressure advance, seeded from the shaper's
// pending extrusion distance.
func TestExtruderWithPressureAdvance(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(3, StateIdle)
	platform := fakePlatform{stepsPerMM: map[uint8]float64{3: 1}}
	shaper := fakeShaper{k: 0.04, pending: 0.5}

	dda := linearDDA(50, 20)
	dda.DirectionVector[3] = 1
	dda.ExtruderSegments = dda.AxisSegments[0]
	require.True(t, dm.PrepareExtruder(dda, platform, shaper))
	assert.True(t, scalar.EqualWithinAbs(0.04, dm.cart.pressureAdvanceK, 1e-9))

	for {
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		if !ok {
			break
		}
	}
	assert.Equal(t, StateIdle, dm.State())
}

// Scenario 4: delta pure-Z move, a2_plus_b2=0 so no reversal is possible;
// reverse_start_step stays at total_steps+1 and step times are monotone.
func TestDeltaPureZNoReversal(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	geom := fakeDeltaGeometry{towerX: 100, towerY: 0, diagonal2: 62500}

	dda := trapq.NewDDA()
	dda.TotalDistance = 50
	dda.DirectionVector[2] = 1
	seg := &trapq.MoveSegment{IsLinear: true, StartVelocity: 1, SegmentLength: 50, SegmentTime: 500}
	dda.AppendAxisSegment(0, seg)
	dda.ClocksNeeded = 500

	params := DeltaMoveParams{InitialX: 0, InitialY: 0, Dx: 0, Dy: 0, Dz: 1, A2PlusB2: 0, StepsPerMM: 1}
	require.True(t, dm.PrepareDeltaAxis(dda, 0, geom, params))
	assert.Equal(t, dm.TotalSteps()+1, dm.reverseStartStep)

	var last uint32
	for {
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		if !ok {
			break
		}
		assert.GreaterOrEqual(t, dm.NextStepTime(), last)
		last = dm.NextStepTime()
		assert.False(t, dm.DirectionChanged())
	}
	assert.Equal(t, StateIdle, dm.State())
}

// A candidate reversal apex that the move's own forward step count already
// covers must be elided: reverse_start_step stays at total_steps+1 and no
// direction flip is ever reported, even though a2_plus_b2>0 put this axis on
// the reversal-candidate path (spec.md §4.2 step 3, the
// "already going up and num_steps_up <= total_steps" disjunct).
func TestDeltaReversalElidedWhenApexWithinTotalSteps(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	geom := fakeDeltaGeometry{towerX: 0, towerY: 0, diagonal2: 2500}

	dda := trapq.NewDDA()
	dda.TotalDistance = 60
	dda.DirectionVector[2] = 1
	seg := &trapq.MoveSegment{IsLinear: true, StartVelocity: 1, SegmentLength: 60, SegmentTime: 600}
	dda.AppendAxisSegment(0, seg)
	dda.ClocksNeeded = 600

	// dx=dy=0 makes the real carriage height climb linearly with distance
	// (net_steps_at_end(s)=s exactly), so there is no actual apex to
	// reverse around. a2_plus_b2=1 nonetheless routes PrepareDeltaAxis into
	// the reversal-candidate branch, whose d_rev/h_rev solve (apex height
	// 50, 10 steps above the start height of 40) lands a candidate
	// num_steps_up=10 well inside this move's 59 forward steps — the
	// elision clause must treat that as no reversal at all.
	params := DeltaMoveParams{InitialX: 30, InitialY: 0, Dx: 0, Dy: 0, Dz: 1, A2PlusB2: 1, StepsPerMM: 1}
	require.True(t, dm.PrepareDeltaAxis(dda, 0, geom, params))
	assert.Equal(t, dm.TotalSteps()+1, dm.reverseStartStep)

	var last uint32
	for {
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		if !ok {
			break
		}
		assert.GreaterOrEqual(t, dm.NextStepTime(), last)
		last = dm.NextStepTime()
		assert.False(t, dm.DirectionChanged())
	}
	assert.Equal(t, StateIdle, dm.State())
}

// Scenario 6: a late final step whose computed time would overshoot
// clocks_needed clamps to clocks_needed rather than failing.
func TestLateFinalStepClamps(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	platform := fakePlatform{stepsPerMM: map[uint8]float64{0: 1}}

	dda := linearDDA(10, 10)
	dda.ClocksNeeded = 97 // below the natural 10*10=100, forcing the clamp on the last step
	require.True(t, dm.PrepareCartesianAxis(dda, 0, platform))

	for {
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		if !ok {
			break
		}
		assert.LessOrEqual(t, dm.NextStepTime(), dda.ClocksNeeded)
	}
	assert.Equal(t, StateIdle, dm.State())
}

// Scenario 7: driving step_interval below MIN_CALC_INTERVAL_CARTESIAN/4
// activates multi-stepping at shift=3 (steps_till_recalc=7).
func TestMultiSteppingActivatesAtShiftThree(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	platform := fakePlatform{stepsPerMM: map[uint8]float64{0: 1}}

	// step_interval = 10 clocks/step < MinCalcIntervalCartesian(50)/4=12,
	// and far more than 8 steps remain, so chooseShift must pick shift=3.
	dda := linearDDA(1000, 10)
	require.True(t, dm.PrepareCartesianAxis(dda, 0, platform))

	ok, serr := dm.CalcNextStepTime()
	require.NoError(t, serr)
	require.True(t, ok)
	assert.Equal(t, uint32(7), dm.stepsTillRecalc)

	for i := 0; i < 7; i++ {
		before := dm.stepsTillRecalc
		ok, serr := dm.CalcNextStepTime()
		require.NoError(t, serr)
		require.True(t, ok)
		assert.Equal(t, before-1, dm.stepsTillRecalc)
	}
}

// Pool reuse: Allocate/Release/Allocate again returns the same backing
// object with NumCreated unchanged.
func TestPoolReuseConservesNumCreated(t *testing.T) {
	pool := NewPool()
	pool.InitialAllocate(4)
	require.EqualValues(t, 4, pool.NumCreated())

	dm := pool.Allocate(1, StateIdle)
	require.EqualValues(t, 4, pool.NumCreated())
	pool.Release(dm)

	dm2 := pool.Allocate(2, StateIdle)
	assert.Same(t, dm, dm2)
	assert.EqualValues(t, 4, pool.NumCreated())
}

// Pool growth: Allocate beyond the initial free list grows NumCreated.
func TestPoolGrowsOnDemand(t *testing.T) {
	pool := NewPool()
	pool.InitialAllocate(1)
	first := pool.Allocate(0, StateIdle)
	second := pool.Allocate(1, StateIdle)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, pool.NumCreated())
}

// Structured error: CalcNextStepTime surfaces the exact late-step marker
// convention spec.md §4.6/§7 defines.
func TestLateStepErrorCarriesMarker(t *testing.T) {
	pool := NewPool()
	dm := pool.Allocate(0, StateIdle)
	platform := fakePlatform{stepsPerMM: map[uint8]float64{0: 1}}

	dda := linearDDA(10, 10)
	dda.ClocksNeeded = 15 // the first step (t=10) fits; every later non-final step overshoots
	require.True(t, dm.PrepareCartesianAxis(dda, 0, platform))

	var failure *StepError
	for i := 0; i < 10; i++ {
		ok, serr := dm.CalcNextStepTime()
		if serr != nil {
			failure = serr
			_ = ok
			break
		}
	}
	require.NotNil(t, failure)
	assert.Equal(t, ErrLateStep, failure.Kind)
	assert.GreaterOrEqual(t, failure.Marker, uint32(lateStepMarkerBase))
	assert.Equal(t, StateStepError, dm.State())
}

type fakeDeltaGeometry struct {
	towerX, towerY, diagonal2 float64
}

func (g fakeDeltaGeometry) TowerX(drive uint8) float64    { return g.towerX }
func (g fakeDeltaGeometry) TowerY(drive uint8) float64    { return g.towerY }
func (g fakeDeltaGeometry) Diagonal2(drive uint8) float64 { return g.diagonal2 }
