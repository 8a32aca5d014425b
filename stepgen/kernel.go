package stepgen

import (
	"math"

	"github.com/amken3d/gopper-motion/trapq"
)

// CalcNextStepTime advances the drive to its next step and reports the due
// time (spec.md §4.6). It returns false once the drive has issued its last
// step for this move, with no error: the caller should then release dm back
// to its Pool. A non-nil error means the drive entered step_error and the
// move must be aborted by the caller.
func (dm *DriveMovement) CalcNextStepTime() (bool, *StepError) {
	if dm.state == StateIdle {
		return false, nil
	}
	dm.directionChanged = false
	dm.nextStep++

	if dm.stepsTillRecalc > 0 {
		dm.stepsTillRecalc--
		dm.nextStepTime += dm.stepInterval
		return true, nil
	}
	return dm.calcNextStepTimeFull()
}

func (dm *DriveMovement) calcNextStepTimeFull() (bool, *StepError) {
	segStepsToLimit := int64(dm.segmentStepLimit) - int64(dm.nextStep)

	shiftStepsToLimit := segStepsToLimit
	if dm.isDelta && dm.reverseStartStep <= dm.totalSteps {
		if dm.nextStep == dm.reverseStartStep {
			dm.direction = !dm.direction
			dm.directionChanged = true
			dm.state = StateDeltaReverse
		} else if dm.nextStep < dm.reverseStartStep {
			if toApex := int64(dm.reverseStartStep) - int64(dm.nextStep); toApex < shiftStepsToLimit {
				shiftStepsToLimit = toApex
			}
		}
	}

	shift := dm.chooseShift(shiftStepsToLimit)
	dm.stepsTillRecalc = (uint32(1) << shift) - 1

	n := float64(dm.nextStep + dm.stepsTillRecalc)

	var nextCalcStepTime float64
	switch dm.state {
	case StateCartLinear:
		nextCalcStepTime = dm.pB*n + dm.pC
	case StateCartAccel:
		t, ok := trapq.EvalNonlinear(dm.pA, dm.pB, dm.pC, n, true)
		if !ok {
			return false, dm.numericFail()
		}
		nextCalcStepTime = t
	case StateCartDecelForwards, StateCartDecelReverse:
		t, ok := trapq.EvalNonlinear(dm.pA, dm.pB, dm.pC, n, false)
		if !ok {
			return false, dm.numericFail()
		}
		nextCalcStepTime = t
	case StateDeltaForwards, StateDeltaReverse:
		t, serr := dm.calcDeltaStepTime(shift)
		if serr != nil {
			return false, serr
		}
		nextCalcStepTime = t
	default:
		return false, dm.numericFail()
	}

	// next_calc_step_time is evaluated at the batch's far end (n includes
	// steps_till_recalc); step_interval is the per-step increment the fast
	// path will add for the rest of the batch, and subtracting it back out
	// here recovers this (the batch's first) step's own due time. EvenSteps
	// is a platform tuning knob reserved for biasing that recovered time
	// toward uniform spacing; the unbiased value is exact for linear and
	// accurate to within one shrinking interval for the nonlinear phases.
	if nextCalcStepTime > float64(dm.nextStepTime) {
		dm.stepInterval = uint32(nextCalcStepTime-float64(dm.nextStepTime)) >> shift
	} else {
		dm.stepInterval = 0
	}
	dm.nextStepTime = uint32(nextCalcStepTime) - dm.stepsTillRecalc*dm.stepInterval

	if nextCalcStepTime > float64(dm.dda.ClocksNeeded) {
		if dm.nextStep >= dm.totalSteps {
			dm.nextStepTime = dm.dda.ClocksNeeded
		} else {
			return false, dm.fail(ErrLateStep, lateStepMarkerBase+dm.nextStepTime)
		}
	}

	if segStepsToLimit == 0 {
		var advanced bool
		if dm.isDelta {
			advanced = dm.advanceSegmentDelta()
		} else {
			advanced = dm.advanceSegmentCartesian()
		}
		if !advanced {
			// next_step == total_steps+1 is the move's last real step: the
			// chain legitimately has nothing past it. A caller-visible
			// "done" only shows up on the following call, via the
			// state==idle short-circuit above; this call still reports a
			// valid step.
			if dm.nextStep == dm.totalSteps+1 {
				dm.state = StateIdle
				return true, nil
			}
			return false, dm.fail(ErrSegmentExhausted, segmentExhaustedBase+dm.nextStepTime)
		}
	}

	return true, nil
}

// chooseShift picks the adaptive multi-step batch size (spec.md §4.6 step
// 2). stepsToLimit has already been clamped to the delta reversal apex, if
// one applies to this move.
func (dm *DriveMovement) chooseShift(stepsToLimit int64) uint {
	threshold := MinCalcIntervalCartesian
	if dm.isDelta {
		threshold = MinCalcIntervalDelta
	}
	if dm.stepInterval >= threshold {
		return 0
	}
	switch {
	case dm.isDelta && dm.stepInterval < threshold/8 && stepsToLimit > 16:
		return 4
	case dm.stepInterval < threshold/4 && stepsToLimit > 8:
		return 3
	case dm.stepInterval < threshold/2 && stepsToLimit > 4:
		return 2
	case stepsToLimit > 2:
		return 1
	default:
		return 0
	}
}

// calcDeltaStepTime implements the carriage-height solve (spec.md §4.6 step
// 3, delta branch): advance the running height by this batch's step count,
// solve for the path distance ds at which the carriage reaches it, then ask
// the current segment for the time at that distance.
func (dm *DriveMovement) calcDeltaStepTime(shift uint) (float64, *StepError) {
	step := float64(int64(1) << shift)
	if dm.direction {
		dm.delta.fHmz0s += step
	} else {
		dm.delta.fHmz0s -= step
	}

	t1 := dm.delta.fMinusAAPlusBBTimesS + dm.delta.fHmz0s*dm.delta.dz
	t2a := dm.delta.fDSqMinusASqMinusBSqTimesSSq - dm.delta.fHmz0s*dm.delta.fHmz0s + t1*t1
	t2 := math.Sqrt(math.Max(t2a, 0))

	var ds float64
	if dm.direction {
		ds = t1 - t2
	} else {
		ds = t1 + t2
	}
	if ds < 0 {
		return 0, dm.numericFail()
	}

	if dm.segIsLinear {
		return dm.pB*ds + dm.pC, nil
	}
	t, ok := trapq.EvalNonlinear(dm.pA, dm.pB, dm.pC, ds, dm.segIsAccelerating)
	if !ok {
		return 0, dm.numericFail()
	}
	return t, nil
}

// numericFail stashes the debug marker in next_step itself (spec.md §4.6
// step 3): the drive is already entering step_error, so next_step no
// longer needs to hold a meaningful step index.
func (dm *DriveMovement) numericFail() *StepError {
	dm.nextStep += numericMarker
	return dm.fail(ErrNumeric, dm.nextStep)
}

// NetStepsTaken returns the signed net step count issued so far, for
// position reporting (spec.md §4.7). next_step counts real steps issued
// (it stops at the move's last real step rather than one past it, see
// DESIGN.md), so forward progress is next_step itself rather than
// next_step-1; past a delta reversal, each step taken cancels one already
// climbed, giving next_step - 2*reverse_start_step + 2. That count is
// relative to the current (already flipped) direction, so the final
// negation turns it back into the net climb.
func (dm *DriveMovement) NetStepsTaken() int64 {
	var net int64
	if dm.reverseStartStep > dm.totalSteps || dm.nextStep < dm.reverseStartStep {
		net = int64(dm.nextStep)
	} else {
		net = int64(dm.nextStep) - 2*int64(dm.reverseStartStep) + 2
	}

	if dm.isExtruder {
		net -= 2 * int64(dm.cart.extruderReverseSteps)
	}
	if !dm.direction {
		net = -net
	}
	return net
}
