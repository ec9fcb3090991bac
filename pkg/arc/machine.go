package arc

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kittclouds/plotweave/internal/store"
)

// Choice kinds recorded in the choice log.
const (
	ChoicePhaseContinuation = "phase-continuation"
	ChoiceBranchSelection   = "branch-selection"
)

// State machine misuse errors. These indicate caller logic bugs and
// propagate as typed failures, never as silent no-ops.
var (
	ErrUnknownTemplate = errors.New("arc: unknown template")
	ErrNoActiveArc     = errors.New("arc: no active arc")
	ErrInvalidBranch   = errors.New("arc: branch is not an option for the current phase")
)

// Choice is an append-only record of one narrative decision.
type Choice struct {
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// Instance is one in-flight run of an arc template for a conversation.
type Instance struct {
	TemplateID      string   `json:"templateId"`
	SubjectRef      string   `json:"subjectRef"`
	PhaseIndex      int      `json:"phaseIndex"`
	ChosenBranch    string   `json:"chosenBranch,omitempty"`
	ChoiceLog       []Choice `json:"choiceLog,omitempty"`
	CompletedPhases []string `json:"completedPhases,omitempty"`
	StartedAt       int64    `json:"startedAt"`
}

// Suggestion kinds, in the priority order the machine emits them.
const (
	SuggestionArcStart     = "arc-start"
	SuggestionContinuation = "continue-phase"
	SuggestionBranch       = "branch"
	SuggestionNextPhase    = "next-phase"
)

// Suggestion is one plot direction offered to the host UI.
type Suggestion struct {
	Kind       string `json:"kind"`
	TemplateID string `json:"templateId,omitempty"`
	PhaseName  string `json:"phaseName,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Label      string `json:"label"`
}

// AdvanceResult reports the outcome of a phase advancement. Snapshot is
// taken before a completing instance is archived, so a completing call
// observes progress 100 even though the active slot is cleared.
type AdvanceResult struct {
	Completed bool
	Snapshot  *store.ArcSnapshot
}

// maxSuggestions bounds every Suggestions call.
const maxSuggestions = 3

// Machine tracks at most one active arc instance per conversation plus
// the archive of completed ones. It never touches storage; snapshots
// flow through the profile coordinator as plain data.
// Thread-safe for concurrent WASM callbacks.
type Machine struct {
	mu       sync.RWMutex
	catalog  *Catalog
	active   *Instance
	archived []*Instance
}

// NewMachine creates an idle machine over the given catalog.
func NewMachine(catalog *Catalog) *Machine {
	return &Machine{catalog: catalog}
}

// StartArc activates a new instance of the template. Any existing active
// instance is discarded, not archived: only one arc can be active, and
// starting a new one abandons the old.
func (m *Machine) StartArc(templateID, subjectRef string) error {
	tmpl, ok := m.catalog.Get(templateID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
	if len(tmpl.Phases) == 0 {
		return fmt.Errorf("%w: %s has no phases", ErrUnknownTemplate, templateID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = &Instance{
		TemplateID: templateID,
		SubjectRef: subjectRef,
		StartedAt:  time.Now().UnixMilli(),
	}
	return nil
}

// AdvancePhase records the just-finished phase and moves to the next.
// When the final phase completes, the instance is archived, the active
// slot cleared, and Completed reported true.
func (m *Machine) AdvancePhase() (*AdvanceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveArc
	}

	tmpl, _ := m.catalog.Get(m.active.TemplateID)
	finished := tmpl.PhaseAt(m.active.PhaseIndex)
	if finished != nil {
		m.active.CompletedPhases = append(m.active.CompletedPhases, finished.Name)
	}
	m.active.PhaseIndex++
	m.active.ChosenBranch = ""

	snap := m.snapshotLocked()

	if m.active.PhaseIndex >= len(tmpl.Phases) {
		m.archived = append(m.archived, m.active)
		m.active = nil
		// The archival happened after the snapshot; its ArchivedCount
		// still reflects what the caller will see on the next read.
		snap.ArchivedCount = len(m.archived)
		return &AdvanceResult{Completed: true, Snapshot: snap}, nil
	}

	return &AdvanceResult{Completed: false, Snapshot: snap}, nil
}

// MakeChoice appends to the choice log. Branch selections must name one
// of the current phase's declared options and also set the chosen branch.
func (m *Machine) MakeChoice(kind, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoActiveArc
	}

	if kind == ChoiceBranchSelection {
		tmpl, _ := m.catalog.Get(m.active.TemplateID)
		phase := tmpl.PhaseAt(m.active.PhaseIndex)
		valid := false
		if phase != nil {
			for _, opt := range tmpl.BranchOptionsFor(phase.Name) {
				if opt == value {
					valid = true
					break
				}
			}
		}
		if !valid {
			return fmt.Errorf("%w: %q", ErrInvalidBranch, value)
		}
		m.active.ChosenBranch = value
	}

	m.active.ChoiceLog = append(m.active.ChoiceLog, Choice{
		Kind:      kind,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// Suggestions recomputes up to three plot directions. With no active arc
// it offers generic arc starters; the recent exchange window is accepted
// but does not steer them — organic development is preferred over
// inferred genre. With an active arc it offers continuation, declared
// branches for the current phase, and a next-phase move, truncated to
// three in that priority order.
func (m *Machine) Suggestions(subjectRef string, recent []string) []Suggestion {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_ = recent

	if m.active == nil {
		out := make([]Suggestion, 0, 2)
		for _, t := range m.catalog.List() {
			out = append(out, Suggestion{
				Kind:       SuggestionArcStart,
				TemplateID: t.ID,
				Label:      fmt.Sprintf("Begin a %s arc with %s", t.DisplayName, subjectRef),
			})
			if len(out) == 2 {
				break
			}
		}
		return out
	}

	tmpl, _ := m.catalog.Get(m.active.TemplateID)
	phase := tmpl.PhaseAt(m.active.PhaseIndex)
	if phase == nil {
		return nil
	}

	out := make([]Suggestion, 0, maxSuggestions)
	out = append(out, Suggestion{
		Kind:       SuggestionContinuation,
		TemplateID: tmpl.ID,
		PhaseName:  phase.Name,
		Label:      fmt.Sprintf("Deepen the current beat: %s", phase.Description),
	})

	for _, opt := range tmpl.BranchOptionsFor(phase.Name) {
		if len(out) == maxSuggestions {
			return out
		}
		out = append(out, Suggestion{
			Kind:       SuggestionBranch,
			TemplateID: tmpl.ID,
			PhaseName:  phase.Name,
			Branch:     opt,
			Label:      fmt.Sprintf("Take a turn: %s", opt),
		})
	}

	if len(out) < maxSuggestions && m.active.PhaseIndex+1 < len(tmpl.Phases) {
		next := tmpl.PhaseAt(m.active.PhaseIndex + 1)
		out = append(out, Suggestion{
			Kind:       SuggestionNextPhase,
			TemplateID: tmpl.ID,
			PhaseName:  next.Name,
			Label:      fmt.Sprintf("Move the story forward: %s", next.Description),
		})
	}

	return out
}

// Progress returns the phase-count completion percentage, 0 when idle.
// Phase weights are not factored in.
func (m *Machine) Progress() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progressLocked()
}

func (m *Machine) progressLocked() int {
	if m.active == nil {
		return 0
	}
	tmpl, _ := m.catalog.Get(m.active.TemplateID)
	if len(tmpl.Phases) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(m.active.PhaseIndex) / float64(len(tmpl.Phases))))
}

// Status returns a serializable projection of the current arc state,
// suitable for embedding in a conversation profile. Returns nil when no
// arc is active and nothing has been archived.
func (m *Machine) Status() *store.ArcSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil && len(m.archived) == 0 {
		return nil
	}
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() *store.ArcSnapshot {
	snap := &store.ArcSnapshot{
		ArchivedCount: len(m.archived),
	}
	if m.active == nil {
		return snap
	}

	tmpl, _ := m.catalog.Get(m.active.TemplateID)
	snap.TemplateID = tmpl.ID
	snap.TemplateName = tmpl.DisplayName
	snap.PhaseIndex = m.active.PhaseIndex
	snap.TotalPhases = len(tmpl.Phases)
	snap.Progress = m.progressLocked()
	snap.CompletedPhases = append([]string(nil), m.active.CompletedPhases...)
	if phase := tmpl.PhaseAt(m.active.PhaseIndex); phase != nil {
		snap.PhaseName = phase.Name
	}
	return snap
}

// ActiveTemplateID returns the active instance's template id, or "".
func (m *Machine) ActiveTemplateID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return ""
	}
	return m.active.TemplateID
}

// ChoiceLog returns a copy of the active instance's choice log.
func (m *Machine) ChoiceLog() []Choice {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return nil
	}
	return append([]Choice(nil), m.active.ChoiceLog...)
}

// ArchivedCount returns the number of completed arcs.
func (m *Machine) ArchivedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.archived)
}

// Reset clears the active instance, the archive, and the per-phase
// milestone log. Idempotent.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = nil
	m.archived = nil
}
