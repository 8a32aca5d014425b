// Package core provides the ambient runtime shared by the motion stack:
// structured logging and the step-clock dispatcher that stands in for the
// hardware step ISR.
package core

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerMu sync.RWMutex
	logger   *zap.Logger = zap.NewNop()
	sugar    *zap.SugaredLogger = logger.Sugar()
)

// SetLogger installs the process-wide logger. Tests typically install an
// observer core (zaptest/observer) to assert on emitted fields.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
	sugar = l.Sugar()
}

// Logger returns the current structured logger.
func Logger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Sugar returns the current sugared logger, convenient for the occasional
// printf-style debug line (spec calls for "a single human-readable debug
// line per drive").
func Sugar() *zap.SugaredLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return sugar
}

// TimingEvent captures a timing-critical event for post-mortem analysis,
// the structured replacement for the ring buffer of raw strings a bare
// debug writer would otherwise need.
type TimingEvent struct {
	Kind  string
	Drive uint8
	Clock uint32
	V1    uint32
	V2    uint32
}

const timingRingSize = 32

// TimingRing is a bounded, allocation-free-at-steady-state ring of recent
// timing events, drained to the logger on a step_error so a post-mortem
// dump never has to guess what happened in the last few steps.
type TimingRing struct {
	mu     sync.Mutex
	events [timingRingSize]TimingEvent
	head   int
	filled bool
}

// Record appends an event, overwriting the oldest once the ring is full.
func (r *TimingRing) Record(evt TimingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.head] = evt
	r.head = (r.head + 1) % timingRingSize
	if r.head == 0 {
		r.filled = true
	}
}

// Dump logs every recorded event, oldest first, and clears the ring.
func (r *TimingRing) Dump(l *zap.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.head
	start := 0
	if r.filled {
		n = timingRingSize
		start = r.head
	}
	for i := 0; i < n; i++ {
		evt := r.events[(start+i)%timingRingSize]
		l.Debug("timing event",
			zap.String("kind", evt.Kind),
			zap.Uint8("drive", evt.Drive),
			zap.Uint32("clock", evt.Clock),
			zap.Uint32("v1", evt.V1),
			zap.Uint32("v2", evt.V2),
		)
	}
	r.head = 0
	r.filled = false
}
