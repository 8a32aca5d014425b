// Package shaper implements the extruder shaper boundary spec.md's
// platform layer describes: pressure-advance K and the filament distance
// already brought forward by it, the two inputs PrepareExtruder needs
// beyond the move's own segment chain.
package shaper

// PressureAdvance tracks a configured compliance constant K and the
// extrusion distance pressure advance has already pulled ahead of the
// nominal filament position. A retraction or a move ending below cruise
// speed settles some or all of that pending distance back.
type PressureAdvance struct {
	k                float64
	smoothTime       float64
	extrusionPending float64
}

// NewPressureAdvance constructs a shaper with compliance constant k (mm of
// extra extrusion per mm/s of extruder velocity) and a smoothing time
// (seconds) the original implementation uses to low-pass the correction so
// it doesn't chase instantaneous velocity jumps.
func NewPressureAdvance(k, smoothTime float64) *PressureAdvance {
	return &PressureAdvance{k: k, smoothTime: smoothTime}
}

// K reports the configured pressure-advance constant, fed directly into
// MoveSegment.CalcNonlinearB.
func (pa *PressureAdvance) K() float64 { return pa.k }

// ExtrusionPending reports the filament distance pressure advance has
// pulled ahead of nominal; PrepareExtruder seeds distance_so_far from this
// so the next move's step times account for filament already displaced.
func (pa *PressureAdvance) ExtrusionPending() float64 { return pa.extrusionPending }

// AdvanceForVelocity updates the pending distance for an extruder moving
// at extruderVelocity (mm/s) over the next segment of duration dt
// (seconds), smoothing the step with smoothTime so consecutive moves at
// similar speeds don't re-trigger the full correction each time.
func (pa *PressureAdvance) AdvanceForVelocity(extruderVelocity, dt float64) {
	target := pa.k * extruderVelocity
	if pa.smoothTime <= 0 || dt >= pa.smoothTime {
		pa.extrusionPending = target
		return
	}
	alpha := dt / pa.smoothTime
	pa.extrusionPending += (target - pa.extrusionPending) * alpha
}

// Settle drives the pending distance back to zero, e.g. at the end of a
// print move sequence or before a retraction.
func (pa *PressureAdvance) Settle() {
	pa.extrusionPending = 0
}
