package trapq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendSegmentChain(t *testing.T) {
	dda := NewDDA()
	first := &MoveSegment{SegmentLength: 1, SegmentTime: 1, IsLinear: true}
	second := &MoveSegment{SegmentLength: 2, SegmentTime: 2, IsLinear: true}

	dda.AppendAxisSegment(0, first)
	dda.AppendAxisSegment(0, second)

	assert.Same(t, first, dda.AxisSegments[0])
	assert.False(t, first.IsLast)
	assert.Same(t, second, first.Next)
	assert.True(t, second.IsLast)
	assert.NotEqual(t, dda.ID.String(), "")
}

func TestLinearCoefficientsRoundtrip(t *testing.T) {
	// A cruise phase moving at 0.1mm/clock, one step per mm, starting at
	// distance 0/time 0: step n should be due at exactly 10*n.
	seg := &MoveSegment{IsLinear: true, StartVelocity: 0.1, SegmentLength: 1000, SegmentTime: 10000}
	eff := 1.0
	pC := seg.CalcC(eff, 0, 0)
	pB := seg.CalcLinearB(eff, 0, 0)

	assert.InDelta(t, 0.0, pC, 1e-9)
	assert.InDelta(t, 10.0, pB, 1e-9)

	for n := 0.0; n < 5; n++ {
		got := pB*n + pC
		assert.InDelta(t, 10*n, got, 1e-9)
	}
}

func TestNonlinearAccelMatchesDirectSolve(t *testing.T) {
	// Starts from rest, half_accel = 1 (total-path mm/clock^2/2), one step
	// per mm. Verify CalcNextStepTime-style coefficients reproduce the
	// direct quadratic solve for a handful of step indices.
	seg := &MoveSegment{IsAccelerating: true, StartVelocity: 0, HalfAccel: 1}
	eff := 1.0

	pA := seg.CalcNonlinearA(0)
	pB := seg.CalcNonlinearB(eff, 0, 0)
	pC := seg.CalcC(eff, 0, 0)

	for _, n := range []float64{1, 4, 9, 16} {
		got, ok := EvalNonlinear(pA, pB, pC, n, true)
		assert.True(t, ok)
		want := math.Sqrt(n) // d=n, v0=0, a=2(half_accel=1) => t=sqrt(d)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestNonlinearDecelMatchesDirectSolve(t *testing.T) {
	seg := &MoveSegment{IsAccelerating: false, StartVelocity: 10, HalfAccel: -1}
	eff := 1.0

	pA := seg.CalcNonlinearA(0)
	pB := seg.CalcNonlinearB(eff, 0, 0)
	pC := seg.CalcC(eff, 0, 0)

	got, ok := EvalNonlinear(pA, pB, pC, 9, false)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, got, 1e-9) // matches the hand-derived tau=1 example
}
