package scan

import "fmt"

// PhaseState is one phase's position in its lifecycle.
type PhaseState string

const (
	StateLocked   PhaseState = "locked"
	StatePending  PhaseState = "pending"
	StateRunning  PhaseState = "running"
	StateComplete PhaseState = "complete"
	StateFailed   PhaseState = "failed"
	StateSkipped  PhaseState = "skipped"
)

// Phase names one of the three pipeline stages.
type Phase string

const (
	PhasePassive Phase = "passive"
	PhaseRender  Phase = "render"
	PhaseProbe   Phase = "probe"
)

// Phases is the per-record state machine. Transitions are monotonic: no
// phase ever moves backwards, and probe starts locked until render settles.
type Phases struct {
	Passive PhaseState `json:"passive"`
	Render  PhaseState `json:"render"`
	Probe   PhaseState `json:"probe"`
}

// NewPhases is the state a record carries when the passive phase has just
// completed: render is queued, probe is gated behind it.
func NewPhases() Phases {
	return Phases{Passive: StateComplete, Render: StatePending, Probe: StateLocked}
}

// transitions is the legal-move table shared by all three phases. Skipped is
// reachable only from pending and only the render phase uses it; locked is
// the probe phase's initial state.
var transitions = map[PhaseState]map[PhaseState]bool{
	StateLocked:  {StatePending: true},
	StatePending: {StateRunning: true, StateSkipped: true},
	StateRunning: {StateComplete: true, StateFailed: true},
}

// CanTransition reports whether a phase may move from one state to another.
func CanTransition(from, to PhaseState) bool {
	return transitions[from][to]
}

// Settled reports whether a phase has reached a terminal state.
func (s PhaseState) Settled() bool {
	return s == StateComplete || s == StateFailed || s == StateSkipped
}

// ProbeUnlockable reports whether the probe phase may leave locked. Render
// must have finished, successfully or not; a failed render still gates open.
func (p Phases) ProbeUnlockable() bool {
	return p.Render == StateComplete || p.Render == StateFailed
}

// Done reports whether no phase is pending or running.
func (p Phases) Done() bool {
	return p.Passive.Settled() && p.Render.Settled() &&
		(p.Probe == StateLocked || p.Probe.Settled())
}

// Advance moves one phase to a new state, enforcing the transition table and
// the probe gate. The receiver is unchanged on error.
func (p *Phases) Advance(phase Phase, to PhaseState) error {
	var cur *PhaseState
	switch phase {
	case PhasePassive:
		cur = &p.Passive
	case PhaseRender:
		cur = &p.Render
	case PhaseProbe:
		cur = &p.Probe
	default:
		return fmt.Errorf("scan: unknown phase %q", phase)
	}

	if !CanTransition(*cur, to) {
		return fmt.Errorf("scan: illegal %s transition %s -> %s", phase, *cur, to)
	}
	if phase == PhaseProbe && *cur == StateLocked && !p.ProbeUnlockable() {
		return fmt.Errorf("scan: probe locked until render settles (render=%s)", p.Render)
	}
	if phase != PhaseRender && to == StateSkipped {
		return fmt.Errorf("scan: only render may be skipped")
	}

	*cur = to
	return nil
}
