package stepgen

import (
	"math"

	"github.com/amken3d/gopper-motion/trapq"
)

// PrepareCartesianAxis seeds dm to walk axisIndex's (0=X,1=Y,2=Z) segment
// chain in dda. Returns false if this drive has no steps for the move, or if
// computing the first step's time fails (the StepError itself is dropped).
func (dm *DriveMovement) PrepareCartesianAxis(dda *trapq.DDA, axisIndex int, platform Platform) bool {
	dm.dda = dda
	dm.distanceSoFar = 0
	dm.timeSoFar = 0
	dm.cart.pressureAdvanceK = 0
	dm.cart.effectiveStepsPerMM = platform.StepsPerMM(dm.drive) * dda.DirectionVector[axisIndex]
	dm.isDelta = false
	dm.isExtruder = false
	dm.currentSegment = dda.AxisSegments[axisIndex]
	return dm.finishCartesianPrepare()
}

// PrepareExtruder seeds dm to walk dda's extruder segment chain.
func (dm *DriveMovement) PrepareExtruder(dda *trapq.DDA, platform Platform, shaper Shaper) bool {
	dm.dda = dda
	dm.distanceSoFar = shaper.ExtrusionPending()
	dm.timeSoFar = 0
	dm.cart.pressureAdvanceK = shaper.K()
	dm.cart.effectiveStepsPerMM = platform.StepsPerMM(dm.drive) * dda.DirectionVector[3]
	dm.isDelta = false
	dm.isExtruder = true
	dm.currentSegment = dda.ExtruderSegments
	return dm.finishCartesianPrepare()
}

func (dm *DriveMovement) finishCartesianPrepare() bool {
	if dm.cart.effectiveStepsPerMM == 0 {
		return false
	}
	dm.effectiveMmPerStep = 1 / dm.cart.effectiveStepsPerMM
	dm.totalSteps = cartesianTotalSteps(dm.currentSegment, dm.cart.effectiveStepsPerMM)
	if !dm.advanceSegmentCartesian() {
		return false
	}
	dm.nextStep = 0
	dm.nextStepTime = 0
	dm.stepInterval = lateSentinel
	dm.stepsTillRecalc = 0
	dm.reverseStartStep = dm.totalSteps + 1
	ok, _ := dm.CalcNextStepTime()
	return ok
}

// cartesianTotalSteps sums the chain's segment lengths and converts to a
// step count; the field stores one less than that count so the §8
// conservation property ("next_step == total_steps+1" at completion) holds
// without a special case at the chain's last segment.
func cartesianTotalSteps(chain *trapq.MoveSegment, effectiveStepsPerMM float64) uint32 {
	var total float64
	for seg := chain; seg != nil; seg = seg.Next {
		total += seg.SegmentLength
	}
	steps := int64(total * effectiveStepsPerMM)
	if steps < 1 {
		return 0
	}
	return uint32(steps - 1)
}

// advanceSegmentCartesian walks current_segment forward, skipping any
// segment in which the drive makes no step progress (spec.md §4.4).
func (dm *DriveMovement) advanceSegmentCartesian() bool {
	for seg := dm.currentSegment; seg != nil; seg = seg.Next {
		startDistance := dm.distanceSoFar
		startTime := dm.timeSoFar
		dm.distanceSoFar += seg.SegmentLength
		dm.timeSoFar += seg.SegmentTime

		phaseStepLimit := uint32(dm.distanceSoFar * dm.cart.effectiveStepsPerMM)

		if dm.nextStep < phaseStepLimit {
			dm.segmentStepLimit = phaseStepLimit
			dm.pC = seg.CalcC(dm.effectiveMmPerStep, startDistance, startTime)
			if seg.IsLinear {
				dm.pB = seg.CalcLinearB(dm.effectiveMmPerStep, startDistance, startTime)
				dm.state = StateCartLinear
			} else {
				dm.pA = seg.CalcNonlinearA(startDistance)
				dm.pB = seg.CalcNonlinearB(dm.effectiveMmPerStep, startTime, dm.cart.pressureAdvanceK)
				switch {
				case seg.IsAccelerating:
					dm.state = StateCartAccel
				case seg.IsReverse:
					dm.state = StateCartDecelReverse
				default:
					dm.state = StateCartDecelForwards
				}
			}
			if seg.IsReverse {
				dm.direction = !dm.direction
				dm.directionChanged = true
			}
			dm.currentSegment = seg.Next
			return true
		}
	}
	return false
}

// PrepareDeltaAxis seeds dm to walk dda's axisIndex tower chain in delta
// mode, computing tower geometry and the potential mid-move reversal point
// (spec.md §4.2 step 3).
func (dm *DriveMovement) PrepareDeltaAxis(dda *trapq.DDA, axisIndex int, geom DeltaGeometry, params DeltaMoveParams) bool {
	dm.dda = dda
	dm.distanceSoFar = 0
	dm.timeSoFar = 0
	dm.isDelta = true
	dm.isExtruder = false
	dm.currentSegment = dda.AxisSegments[axisIndex]

	a := params.InitialX - geom.TowerX(dm.drive)
	b := params.InitialY - geom.TowerY(dm.drive)
	aAbB := a*params.Dx + b*params.Dy
	dSqMinusASqMinusBSq := geom.Diagonal2(dm.drive) - a*a - b*b

	dm.delta.h0MinusZ0 = math.Sqrt(math.Max(dSqMinusASqMinusBSq, 0))
	dm.delta.fTwoA = 2 * a
	dm.delta.fTwoB = 2 * b
	dm.delta.fDSqMinusASqMinusBSqTimesSSq = dSqMinusASqMinusBSq * params.StepsPerMM * params.StepsPerMM
	dm.delta.fMinusAAPlusBBTimesS = -aAbB * params.StepsPerMM
	dm.delta.dx, dm.delta.dy, dm.delta.dz = params.Dx, params.Dy, params.Dz
	dm.delta.stepsPerMM = params.StepsPerMM
	dm.delta.fHmz0s = dm.delta.h0MinusZ0 * params.StepsPerMM

	totalDistance := dda.TotalDistance
	dm.totalSteps = dm.deltaChainTotalSteps(totalDistance)

	if params.A2PlusB2 <= 0 {
		dm.direction = params.Dz >= 0
		dm.reverseStartStep = dm.totalSteps + 1
	} else {
		dRev := (params.Dz*math.Sqrt(params.A2PlusB2*geom.Diagonal2(dm.drive)-
			(a*params.Dy-b*params.Dx)*(a*params.Dy-b*params.Dx)) - aAbB) / params.A2PlusB2

		if dRev > 0 && dRev < totalDistance {
			hRev := params.Dz*dRev + math.Sqrt(math.Max(
				dSqMinusASqMinusBSq-2*dRev*aAbB-params.A2PlusB2*dRev*dRev, 0))
			numStepsUp := int64(math.Floor((hRev - dm.delta.h0MinusZ0) * params.StepsPerMM))

			// h_rev is the height at the carriage-height function's single
			// interior critical point, found via the same "+sqrt" branch the
			// climbing case uses; by concavity of that function, any apex
			// found here belongs to a move that starts climbing. dm.direction
			// has not been assigned anything yet at this point in Prepare, so
			// "currently forward" must be this derived fact, not a read of
			// the field's zero-initialised value.
			const goingUp = true
			if numStepsUp < 1 || (goingUp && uint32(numStepsUp) <= dm.totalSteps) {
				dm.direction = false
				dm.reverseStartStep = dm.totalSteps + 1
			} else {
				dm.direction = true
				dm.reverseStartStep = uint32(numStepsUp) + 1
				// totalSteps holds the step count minus one: the new count
				// 2*numStepsUp - (totalSteps+1), stored minus one.
				dm.totalSteps = uint32(2*numStepsUp) - dm.totalSteps - 2
			}
		} else {
			dm.direction = dRev <= 0
			dm.reverseStartStep = dm.totalSteps + 1
		}
	}

	if !dm.advanceSegmentDelta() {
		return false
	}

	dm.nextStep = 0
	dm.nextStepTime = 0
	dm.stepInterval = lateSentinel
	dm.stepsTillRecalc = 0
	ok, _ := dm.CalcNextStepTime()
	return ok
}

// deltaChainTotalSteps pre-scans the tower's segment chain to determine the
// move's total net step count for this drive, following the same
// carriage-height formula advanceSegmentDelta applies incrementally. The
// field stores one less than the raw count, matching the cartesian
// convention so that "next_step == total_steps+1" holds at completion.
func (dm *DriveMovement) deltaChainTotalSteps(totalDistance float64) uint32 {
	netStepsAtEnd := math.Sqrt(math.Max(dm.delta.fDSqMinusASqMinusBSqTimesSSq-
		dm.delta.stepsPerMM*dm.delta.stepsPerMM*(
			(totalDistance*dm.delta.dx)*(totalDistance*dm.delta.dx+dm.delta.fTwoA)+
				(totalDistance*dm.delta.dy)*(totalDistance*dm.delta.dy+dm.delta.fTwoB)), 0)) +
		(totalDistance*dm.delta.dz-dm.delta.h0MinusZ0)*dm.delta.stepsPerMM

	steps := int64(math.Floor(netStepsAtEnd))
	if steps < 1 {
		return 0
	}
	return uint32(steps - 1)
}

// advanceSegmentDelta walks the tower's segment chain computing the
// carriage-height-derived net step count at each segment's end (spec.md
// §4.5).
func (dm *DriveMovement) advanceSegmentDelta() bool {
	for seg := dm.currentSegment; seg != nil; seg = seg.Next {
		startDistance := dm.distanceSoFar
		startTime := dm.timeSoFar

		effMmPerStep := 1 / dm.delta.stepsPerMM
		pC := seg.CalcC(effMmPerStep, startDistance, startTime)
		var pA, pB float64
		if seg.IsLinear {
			pB = seg.CalcLinearB(effMmPerStep, startDistance, startTime)
		} else {
			pA = seg.CalcNonlinearA(startDistance)
			pB = seg.CalcNonlinearB(effMmPerStep, startTime, 0)
		}

		dm.distanceSoFar += seg.SegmentLength
		sDx := dm.distanceSoFar * dm.delta.dx
		sDy := dm.distanceSoFar * dm.delta.dy

		netStepsAtEnd := math.Sqrt(math.Max(dm.delta.fDSqMinusASqMinusBSqTimesSSq-
			dm.delta.stepsPerMM*dm.delta.stepsPerMM*(sDx*(sDx+dm.delta.fTwoA)+sDy*(sDy+dm.delta.fTwoB)), 0)) +
			(dm.distanceSoFar*dm.delta.dz-dm.delta.h0MinusZ0)*dm.delta.stepsPerMM

		dm.timeSoFar += seg.SegmentTime

		if netStepsAtEnd > float64(dm.nextStep) {
			dm.pA, dm.pB, dm.pC = pA, pB, pC
			dm.segIsLinear = seg.IsLinear
			dm.segIsAccelerating = seg.IsAccelerating
			dm.currentSegment = seg.Next

			if dm.direction {
				dm.state = StateDeltaForwards
				if netStepsAtEnd > float64(dm.reverseStartStep) {
					dm.segmentStepLimit = dm.reverseStartStep
				} else if seg.IsLast {
					dm.segmentStepLimit = dm.totalSteps + 1
				} else {
					dm.segmentStepLimit = uint32(math.Floor(netStepsAtEnd)) + 1
				}
			} else {
				dm.state = StateDeltaReverse
				if seg.IsLast {
					dm.segmentStepLimit = dm.totalSteps + 1
				} else {
					dm.segmentStepLimit = uint32(math.Floor(netStepsAtEnd))
				}
			}
			return true
		}
	}
	return false
}
