package lifecycle

import "sync/atomic"

// Phase is the process-level serving phase reported by /health.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseServing
	PhaseShuttingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseServing:
		return "serving"
	case PhaseShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// SetPhase records the current phase. Call PhaseShuttingDown when SIGTERM/SIGINT is received.
func SetPhase(p Phase) {
	phase.Store(int32(p))
}

// CurrentPhase returns the last recorded phase.
func CurrentPhase() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return CurrentPhase() == PhaseShuttingDown
}
