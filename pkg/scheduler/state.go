// Package scheduler provides the periodic drivers of the automation
// subsystem: the task scheduler, the workflow scheduler, and the account
// monitor. Each runs a fixed tick with a single-flight guard so at most
// one batch per scheduler is ever in flight.
package scheduler

import "sync"

// TickState is the observable state of a scheduler's tick loop.
type TickState int32

const (
	TickIdle TickState = iota
	TickRunning
)

func (s TickState) String() string {
	if s == TickRunning {
		return "running"
	}

	return "idle"
}

// tickGuard is the single-flight gate around a scheduler's tick work. A
// tick that fires while another is running is skipped, never queued.
type tickGuard struct {
	mu    sync.Mutex
	state TickState
}

// begin transitions Idle to Running. It reports false when a tick is
// already in flight.
func (g *tickGuard) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == TickRunning {
		return false
	}

	g.state = TickRunning

	return true
}

func (g *tickGuard) end() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = TickIdle
}

func (g *tickGuard) current() TickState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}
