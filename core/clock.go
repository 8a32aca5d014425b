package core

// ClockFreq is the nominal timer frequency (ticks per second) moves are
// scheduled against. Real firmware ties this to a hardware timer; on the
// host it is just the unit due-times are expressed in.
const ClockFreq = 12000000 // 12MHz, matches the teacher's default MCU timer

// UsToTicks converts a microsecond duration to clock ticks.
func UsToTicks(us uint32) uint32 {
	return (us * ClockFreq) / 1000000
}

// TicksToUs converts clock ticks to microseconds.
func TicksToUs(ticks uint32) uint32 {
	return (ticks * 1000000) / ClockFreq
}

// StepEvent is one scheduled pulse, as the step ISR would observe it.
type StepEvent struct {
	Drive            uint8
	Time             uint32
	Direction        bool
	DirectionChanged bool
}

// Source is anything that can be driven by a StepClock: a single drive's
// CalcNextStepTime-shaped stepper. This is the boundary the spec marks as
// "the step ISR" — StepClock exists only so DriveMovement can be exercised
// end-to-end without a real interrupt controller.
type Source interface {
	// NextStepTime reports the currently scheduled due-time for this
	// drive's next, not-yet-emitted step.
	NextStepTime() uint32
	// Step advances the source past its currently scheduled step and
	// computes the following one. It returns false once the drive has no
	// more steps to contribute.
	Step() bool
	// Direction/DirectionChanged mirror DriveMovement's fields for the
	// step the source just emitted.
	Direction() bool
	DirectionChanged() bool
	Drive() uint8
}

// StepClock merges the per-drive timelines of every active Source by
// earliest due-time, exactly as spec.md §5 describes the ISR doing:
// "the module does not coordinate between drives... the ISR merges them
// by earliest due-time." It picks the earliest source by a linear scan
// before every step, adapted from the teacher's
// core.Timer/ScheduleTimer/TimerDispatch.
type StepClock struct {
	sources []Source
	events  []StepEvent
}

// NewStepClock creates an empty dispatcher.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Add registers a source. Sources with no steps left (NextStepTime already
// exhausted) should not be added.
func (c *StepClock) Add(s Source) {
	c.sources = append(c.sources, s)
}

// Run drains every registered source, emitting a StepEvent per pulse in
// non-decreasing global time order, until all sources are done.
func (c *StepClock) Run() []StepEvent {
	for len(c.sources) > 0 {
		earliest := 0
		for i := 1; i < len(c.sources); i++ {
			if less32(c.sources[i].NextStepTime(), c.sources[earliest].NextStepTime()) {
				earliest = i
			}
		}

		s := c.sources[earliest]
		evt := StepEvent{
			Drive:            s.Drive(),
			Time:             s.NextStepTime(),
			Direction:        s.Direction(),
			DirectionChanged: s.DirectionChanged(),
		}
		more := s.Step()
		c.events = append(c.events, evt)

		if !more {
			c.sources = append(c.sources[:earliest], c.sources[earliest+1:]...)
		}
	}
	return c.events
}

// less32 compares two clock ticks with wraparound semantics, the same
// signed-difference trick the teacher's insertTimer/TimerDispatch use to
// stay correct across a 32-bit rollover.
func less32(a, b uint32) bool {
	return int32(a-b) < 0
}
