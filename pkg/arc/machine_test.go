package arc

import (
	"errors"
	"testing"
)

func TestStartArcUnknownTemplate(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	err := m.StartArc("no-such-arc", "Mira")
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestAdvanceWithoutActiveArc(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if _, err := m.AdvancePhase(); !errors.Is(err, ErrNoActiveArc) {
		t.Errorf("expected ErrNoActiveArc, got %v", err)
	}
	if err := m.MakeChoice(ChoicePhaseContinuation, "keep going"); !errors.Is(err, ErrNoActiveArc) {
		t.Errorf("expected ErrNoActiveArc, got %v", err)
	}
}

func TestFullArcProgression(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("mystery", "Mira"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}

	if p := m.Progress(); p != 0 {
		t.Errorf("expected 0 progress at start, got %d", p)
	}

	wantProgress := []int{25, 50, 75, 100}
	for i := 0; i < 4; i++ {
		res, err := m.AdvancePhase()
		if err != nil {
			t.Fatalf("AdvancePhase %d failed: %v", i, err)
		}

		wantCompleted := i == 3
		if res.Completed != wantCompleted {
			t.Errorf("advance %d: completed = %v, want %v", i, res.Completed, wantCompleted)
		}
		if res.Snapshot.Progress != wantProgress[i] {
			t.Errorf("advance %d: progress = %d, want %d", i, res.Snapshot.Progress, wantProgress[i])
		}
		if len(res.Snapshot.CompletedPhases) != i+1 {
			t.Errorf("advance %d: expected %d completed phases, got %d", i, i+1, len(res.Snapshot.CompletedPhases))
		}
	}

	// After completion the active slot is clear
	if p := m.Progress(); p != 0 {
		t.Errorf("expected 0 progress after completion, got %d", p)
	}
	if m.ArchivedCount() != 1 {
		t.Errorf("expected 1 archived arc, got %d", m.ArchivedCount())
	}
	if _, err := m.AdvancePhase(); !errors.Is(err, ErrNoActiveArc) {
		t.Errorf("expected ErrNoActiveArc after completion, got %v", err)
	}

	// Archived work still shows in status
	snap := m.Status()
	if snap == nil {
		t.Fatal("expected status to survive via archive")
	}
	if snap.ArchivedCount != 1 {
		t.Errorf("expected ArchivedCount 1, got %d", snap.ArchivedCount)
	}
	if snap.TemplateID != "" {
		t.Errorf("expected no active template, got %q", snap.TemplateID)
	}
}

func TestProgressMonotonic(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("heros-journey", "Kai"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}

	last := m.Progress()
	for i := 0; i < 5; i++ {
		res, err := m.AdvancePhase()
		if err != nil {
			t.Fatalf("AdvancePhase failed: %v", err)
		}
		if res.Snapshot.Progress < last {
			t.Errorf("progress went backwards: %d -> %d", last, res.Snapshot.Progress)
		}
		last = res.Snapshot.Progress
	}
	if last != 100 {
		t.Errorf("expected final snapshot progress 100, got %d", last)
	}
}

func TestStartArcDiscardsActive(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("heros-journey", "Kai"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}
	if _, err := m.AdvancePhase(); err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	if err := m.StartArc("mystery", "Kai"); err != nil {
		t.Fatalf("second StartArc failed: %v", err)
	}

	if got := m.ActiveTemplateID(); got != "mystery" {
		t.Errorf("expected active template mystery, got %q", got)
	}
	// Abandoned, not completed: nothing archived
	if m.ArchivedCount() != 0 {
		t.Errorf("expected 0 archived, got %d", m.ArchivedCount())
	}
	if p := m.Progress(); p != 0 {
		t.Errorf("expected fresh arc at 0 progress, got %d", p)
	}
}

func TestMakeChoiceBranchValidation(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("heros-journey", "Kai"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}
	// Move to call-to-adventure, which declares branches
	if _, err := m.AdvancePhase(); err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	if err := m.MakeChoice(ChoiceBranchSelection, "no such branch"); !errors.Is(err, ErrInvalidBranch) {
		t.Errorf("expected ErrInvalidBranch, got %v", err)
	}
	if log := m.ChoiceLog(); len(log) != 0 {
		t.Errorf("rejected choice must not be logged, got %d entries", len(log))
	}

	if err := m.MakeChoice(ChoiceBranchSelection, "accept eagerly"); err != nil {
		t.Fatalf("valid branch rejected: %v", err)
	}
	log := m.ChoiceLog()
	if len(log) != 1 || log[0].Value != "accept eagerly" {
		t.Errorf("expected branch choice logged, got %v", log)
	}

	// Continuations are never validated against branches
	if err := m.MakeChoice(ChoicePhaseContinuation, "linger in the moment"); err != nil {
		t.Fatalf("continuation rejected: %v", err)
	}
	if len(m.ChoiceLog()) != 2 {
		t.Errorf("expected 2 logged choices, got %d", len(m.ChoiceLog()))
	}
}

func TestSuggestionsIdle(t *testing.T) {
	m := NewMachine(DefaultCatalog())

	sugs := m.Suggestions("Mira", []string{"some recent message"})
	if len(sugs) == 0 || len(sugs) > 2 {
		t.Fatalf("expected 1-2 idle suggestions, got %d", len(sugs))
	}
	for _, s := range sugs {
		if s.Kind != SuggestionArcStart {
			t.Errorf("expected arc-start suggestions when idle, got %q", s.Kind)
		}
		if s.TemplateID == "" {
			t.Error("expected suggestion to carry a template id")
		}
	}
}

func TestSuggestionsActiveCapped(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("mystery", "Mira"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}
	// investigation declares 3 branches: continuation + 3 would exceed the cap
	if _, err := m.AdvancePhase(); err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	sugs := m.Suggestions("Mira", nil)
	if len(sugs) != 3 {
		t.Fatalf("expected exactly 3 suggestions, got %d", len(sugs))
	}
	if sugs[0].Kind != SuggestionContinuation {
		t.Errorf("expected continuation first, got %q", sugs[0].Kind)
	}
	for _, s := range sugs[1:] {
		if s.Kind != SuggestionBranch {
			t.Errorf("expected branch suggestions after continuation, got %q", s.Kind)
		}
	}
}

func TestSuggestionsBranchlessPhase(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("redemption", "Ash"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}

	sugs := m.Suggestions("Ash", nil)
	if len(sugs) != 2 {
		t.Fatalf("expected continuation + next-phase, got %d", len(sugs))
	}
	if sugs[0].Kind != SuggestionContinuation || sugs[1].Kind != SuggestionNextPhase {
		t.Errorf("unexpected kinds: %q, %q", sugs[0].Kind, sugs[1].Kind)
	}
}

func TestResetIdempotent(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("slow-burn", "Rowan"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := m.AdvancePhase(); err != nil {
			t.Fatalf("AdvancePhase failed: %v", err)
		}
	}
	if m.ArchivedCount() != 1 {
		t.Fatalf("expected 1 archived, got %d", m.ArchivedCount())
	}

	m.Reset()
	if m.Status() != nil {
		t.Error("expected nil status after reset")
	}
	if m.ArchivedCount() != 0 {
		t.Error("expected archive cleared")
	}

	// Second reset is a no-op, not a crash
	m.Reset()
	if m.Status() != nil {
		t.Error("expected nil status after double reset")
	}
}

func TestAdvanceClearsChosenBranch(t *testing.T) {
	m := NewMachine(DefaultCatalog())
	if err := m.StartArc("slow-burn", "Rowan"); err != nil {
		t.Fatalf("StartArc failed: %v", err)
	}
	// forced-proximity is index 2
	for i := 0; i < 2; i++ {
		if _, err := m.AdvancePhase(); err != nil {
			t.Fatalf("AdvancePhase failed: %v", err)
		}
	}

	if err := m.MakeChoice(ChoiceBranchSelection, "shared danger"); err != nil {
		t.Fatalf("MakeChoice failed: %v", err)
	}
	if _, err := m.AdvancePhase(); err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	// The chosen branch applied to the finished phase only; a fresh phase
	// starts unbranched, and the stale option is no longer valid.
	if err := m.MakeChoice(ChoiceBranchSelection, "shared danger"); !errors.Is(err, ErrInvalidBranch) {
		t.Errorf("expected stale branch rejected, got %v", err)
	}
}
