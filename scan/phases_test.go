package scan

import "testing"

func TestPhases_HappyPath(t *testing.T) {
	p := NewPhases()

	steps := []struct {
		phase Phase
		to    PhaseState
	}{
		{PhaseRender, StateRunning},
		{PhaseRender, StateComplete},
		{PhaseProbe, StatePending},
		{PhaseProbe, StateRunning},
		{PhaseProbe, StateComplete},
	}
	for _, st := range steps {
		if err := p.Advance(st.phase, st.to); err != nil {
			t.Fatalf("Advance(%s, %s): %v", st.phase, st.to, err)
		}
	}
	if !p.Done() {
		t.Errorf("expected settled phases, got %+v", p)
	}
}

func TestPhases_ProbeLockedUntilRenderSettles(t *testing.T) {
	p := NewPhases()
	if err := p.Advance(PhaseProbe, StatePending); err == nil {
		t.Fatal("probe must stay locked while render is pending")
	}

	if err := p.Advance(PhaseRender, StateRunning); err != nil {
		t.Fatal(err)
	}
	if err := p.Advance(PhaseProbe, StatePending); err == nil {
		t.Fatal("probe must stay locked while render is running")
	}

	// A failed render still opens the gate.
	if err := p.Advance(PhaseRender, StateFailed); err != nil {
		t.Fatal(err)
	}
	if err := p.Advance(PhaseProbe, StatePending); err != nil {
		t.Errorf("probe must unlock after render failed: %v", err)
	}
}

func TestPhases_NoBackwardMoves(t *testing.T) {
	p := NewPhases()
	if err := p.Advance(PhaseRender, StateRunning); err != nil {
		t.Fatal(err)
	}
	if err := p.Advance(PhaseRender, StateComplete); err != nil {
		t.Fatal(err)
	}

	for _, to := range []PhaseState{StatePending, StateRunning, StateFailed, StateLocked} {
		if err := p.Advance(PhaseRender, to); err == nil {
			t.Errorf("complete -> %s must be rejected", to)
		}
	}
	if p.Render != StateComplete {
		t.Errorf("failed transition must not mutate state, got %s", p.Render)
	}
}

func TestPhases_SkipIsRenderOnly(t *testing.T) {
	p := NewPhases()
	if err := p.Advance(PhaseRender, StateSkipped); err != nil {
		t.Errorf("render pending -> skipped: %v", err)
	}

	p = NewPhases()
	p.Render = StateComplete
	if err := p.Advance(PhaseProbe, StatePending); err != nil {
		t.Fatal(err)
	}
	if err := p.Advance(PhaseProbe, StateSkipped); err == nil {
		t.Error("probe must not be skippable")
	}
}

func TestPhases_SkippedDoesNotUnlockProbe(t *testing.T) {
	p := NewPhases()
	if err := p.Advance(PhaseRender, StateSkipped); err != nil {
		t.Fatal(err)
	}
	if p.ProbeUnlockable() {
		t.Error("skipped render must not unlock probe")
	}
}
