package trapq

import "github.com/google/uuid"

// DDA (digital differential analyser) is the planner's move descriptor: the
// shared per-move state every drive taking part in the move reads from.
// AxisSegments and ExtruderSegments both express phases in the same
// total-path distance/velocity units; a drive's own coefficients come from
// combining a chain with that drive's effective_steps_per_mm at walk time
// (trapq.MoveSegment.CalcC and friends), so concurrent extrusion can simply
// share the axes' chain. ExtruderSegments is its own field because a
// retraction or prime (E moving with no XY/Z travel) has no shared path to
// walk and needs an independent trapezoid over E distance alone.
type DDA struct {
	ID uuid.UUID

	// AxisSegments holds one chain per linear drive: X/Y/Z in Cartesian or
	// CoreXY mode, tower A/B/C in delta mode. Phases are expressed in
	// shared total-path mm/clocks; per-drive step coefficients are derived
	// from a chain at walk time, not stored on it.
	AxisSegments     [3]*MoveSegment
	ExtruderSegments *MoveSegment

	// DirectionVector holds the unit travel direction for X, Y, Z, E; a
	// drive's effective step scale is steps-per-mm scaled by the component
	// here (0 when the drive doesn't move this move).
	DirectionVector [4]float64

	TotalDistance float64 // mm along the move's travel vector
	ClocksNeeded  uint32  // total move duration, for bounds/diagnostic checks
}

// NewDDA allocates a move descriptor with a fresh trace ID; cmd/stepsim
// prints it as the label of each simulated move's step timeline.
func NewDDA() *DDA {
	return &DDA{ID: uuid.New()}
}

// AppendAxisSegment appends a segment to axis index axis's chain (0=X,
// 1=Y, 2=Z / tower A/B/C), wiring Next and IsLast so the caller (the
// planner) doesn't have to.
func (d *DDA) AppendAxisSegment(axis int, seg *MoveSegment) {
	d.AxisSegments[axis] = appendSegment(d.AxisSegments[axis], seg)
}

// AppendExtruderSegment appends a segment to the extruder chain.
func (d *DDA) AppendExtruderSegment(seg *MoveSegment) {
	d.ExtruderSegments = appendSegment(d.ExtruderSegments, seg)
}

func appendSegment(head, seg *MoveSegment) *MoveSegment {
	if head == nil {
		seg.IsLast = true
		return seg
	}
	tail := head
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.IsLast = false
	tail.Next = seg
	seg.IsLast = true
	return head
}
