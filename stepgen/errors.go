package stepgen

import "fmt"

// ErrorKind distinguishes the three failure modes spec.md §7 defines.
type ErrorKind int

const (
	// ErrNumeric is the "ds < 0" delta-branch consistency failure: only
	// reachable through accumulated float error past the max(t2a,0) guard.
	ErrNumeric ErrorKind = iota
	// ErrLateStep is a non-final step whose computed time exceeds
	// dda.ClocksNeeded.
	ErrLateStep
	// ErrSegmentExhausted is reached when the segment chain runs out
	// before next_step reaches total_steps+1.
	ErrSegmentExhausted
)

// Marker values are preserved byte-for-byte from spec.md §4.6/§7 so a
// debug dump stays compatible with the spec's documented encoding.
const (
	numericMarker           = 1_000_000
	lateStepMarkerBase      = 10_000_000
	segmentExhaustedBase    = 20_000_000
)

// StepError reports a DriveMovement failure. Constructing one is the only
// allocation on the failure path; the success path never allocates.
type StepError struct {
	Drive  uint8
	Kind   ErrorKind
	Marker uint32
}

func (e *StepError) Error() string {
	switch e.Kind {
	case ErrNumeric:
		return fmt.Sprintf("drive %d: numeric consistency error, marker=%d", e.Drive, e.Marker)
	case ErrLateStep:
		return fmt.Sprintf("drive %d: late step beyond clocks_needed, marker=%d", e.Drive, e.Marker)
	case ErrSegmentExhausted:
		return fmt.Sprintf("drive %d: segment chain exhausted prematurely, marker=%d", e.Drive, e.Marker)
	default:
		return fmt.Sprintf("drive %d: step_error, marker=%d", e.Drive, e.Marker)
	}
}

func (dm *DriveMovement) fail(kind ErrorKind, marker uint32) *StepError {
	dm.state = StateStepError
	return &StepError{Drive: dm.drive, Kind: kind, Marker: marker}
}
