// Package director orchestrates plot development for a conversation: it
// consults the arc machine for direction, derives hints from the recent
// exchange, asks the generator for prose, and persists the outcome
// through the profile coordinator.
package director

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kittclouds/plotweave/internal/store"
	"github.com/kittclouds/plotweave/pkg/arc"
	"github.com/kittclouds/plotweave/pkg/direction"
	"github.com/kittclouds/plotweave/pkg/generate"
	"github.com/kittclouds/plotweave/pkg/profile"
)

// maxDirectionHints bounds the keywords extracted per development call.
const maxDirectionHints = 5

// Service coordinates the arc machine, the direction extractors, the
// generator, and the profile coordinator for one conversation.
type Service struct {
	arcs      *arc.Machine
	profiles  *profile.Coordinator
	gen       generate.Generator
	extractor *direction.Extractor
	matcher   *direction.Matcher
}

// NewService wires the director. The matcher may be nil when cue
// detection is unavailable; everything else is required.
func NewService(arcs *arc.Machine, profiles *profile.Coordinator, gen generate.Generator, extractor *direction.Extractor, matcher *direction.Matcher) *Service {
	return &Service{
		arcs:      arcs,
		profiles:  profiles,
		gen:       gen,
		extractor: extractor,
		matcher:   matcher,
	}
}

// DevelopRequest carries the host state for one development call.
type DevelopRequest struct {
	ParticipantName string
	Suggestion      arc.Suggestion
	RecentWindow    []string
	ChatLength      int
	LastMessageTime int64
}

// DevelopResult is the outcome of a successful development.
type DevelopResult struct {
	Entry *store.PlotEntry
	Save  *profile.SaveResult
	Hints []string
	Cues  []string
}

// DevelopPlot generates the next plot development and persists it. A
// generation failure returns the error with nothing written: the stored
// profile and the arc machine are exactly as they were.
func (s *Service) DevelopPlot(ctx context.Context, k profile.Key, req DevelopRequest) (*DevelopResult, error) {
	var hints []string
	if s.extractor != nil {
		hints = s.extractor.Extract(req.RecentWindow, maxDirectionHints)
	}
	var cues []string
	if s.matcher != nil {
		cues = s.matcher.Cues(strings.Join(req.RecentWindow, "\n"))
	}

	prior, _, err := s.profiles.Load(ctx, k)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}

	payload := generate.Payload{
		ParticipantName: req.ParticipantName,
		Suggestion:      req.Suggestion.Label,
		BranchLabel:     req.Suggestion.Branch,
		DirectionHints:  hints,
		Cues:            cues,
		RecentWindow:    req.RecentWindow,
	}
	if prior != nil {
		payload.PreviousPlot = prior.PlotText
	}
	if snap := s.arcs.Status(); snap != nil {
		payload.TemplateName = snap.TemplateName
		payload.PhaseName = snap.PhaseName
	}

	text, err := s.gen.Generate(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("director: development failed: %w", err)
	}

	entry := &store.PlotEntry{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}

	history := []store.PlotEntry{*entry}
	if prior != nil {
		history = append(history, prior.PlotHistory...)
	}

	save, err := s.profiles.Save(ctx, k, profile.Update{
		PlotText:        text,
		Status:          store.StatusReady,
		ParticipantName: req.ParticipantName,
		PlotHistory:     history,
		PushDirections:  append(append([]string(nil), cues...), hints...),
		ArcSnapshot:     s.arcs.Status(),
		ChatLength:      req.ChatLength,
		LastMessageTime: req.LastMessageTime,
	})
	if err != nil {
		return nil, err
	}

	return &DevelopResult{Entry: entry, Save: save, Hints: hints, Cues: cues}, nil
}

// MarkInjected records that the host inserted the current plot text into
// the chat.
func (s *Service) MarkInjected(ctx context.Context, k profile.Key) error {
	cur, _, err := s.profiles.Load(ctx, k)
	if err != nil {
		return err
	}
	_, err = s.profiles.Save(ctx, k, profile.Update{
		PlotText: cur.PlotText,
		Status:   store.StatusInjected,
	})
	return err
}

// StartArc activates an arc template and persists the new snapshot.
func (s *Service) StartArc(ctx context.Context, k profile.Key, templateID, subjectRef string) (*store.ArcSnapshot, error) {
	if err := s.arcs.StartArc(templateID, subjectRef); err != nil {
		return nil, err
	}
	snap := s.arcs.Status()
	if err := s.persistArc(ctx, k, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// AdvancePhase moves the active arc forward and persists the snapshot
// taken at the moment of advancement.
func (s *Service) AdvancePhase(ctx context.Context, k profile.Key) (*arc.AdvanceResult, error) {
	res, err := s.arcs.AdvancePhase()
	if err != nil {
		return nil, err
	}
	if err := s.persistArc(ctx, k, res.Snapshot); err != nil {
		return nil, err
	}
	return res, nil
}

// MakeChoice records a narrative decision and persists the snapshot.
func (s *Service) MakeChoice(ctx context.Context, k profile.Key, kind, value string) error {
	if err := s.arcs.MakeChoice(kind, value); err != nil {
		return err
	}
	return s.persistArc(ctx, k, s.arcs.Status())
}

// ResetArc clears all arc state. The persisted snapshot is zeroed
// structurally; analysis fields survive the reset in storage.
func (s *Service) ResetArc(ctx context.Context, k profile.Key) error {
	s.arcs.Reset()
	return s.persistArc(ctx, k, &store.ArcSnapshot{})
}

// persistArc saves an arc snapshot without disturbing the stored plot
// text or status.
func (s *Service) persistArc(ctx context.Context, k profile.Key, snap *store.ArcSnapshot) error {
	u := profile.Update{ArcSnapshot: snap}
	cur, _, err := s.profiles.Load(ctx, k)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return err
	}
	if cur != nil {
		u.PlotText = cur.PlotText
		u.Status = cur.Status
	}
	_, err = s.profiles.Save(ctx, k, u)
	return err
}

// Suggestions returns up to three plot directions for the subject.
func (s *Service) Suggestions(subjectRef string, recent []string) []arc.Suggestion {
	return s.arcs.Suggestions(subjectRef, recent)
}

// Restore loads and projects the stored profile. Restoration is a pure
// read; it never writes to either backend.
func (s *Service) Restore(ctx context.Context, k profile.Key) (*profile.RestoredView, profile.Source, error) {
	p, src, err := s.profiles.Load(ctx, k)
	if err != nil {
		return nil, "", err
	}
	return profile.Restore(p), src, nil
}

// statusLabels maps stored status values to display text.
var statusLabels = map[string]string{
	store.StatusPending:  "Developing plot...",
	store.StatusReady:    "Plot ready",
	store.StatusInjected: "Plot injected",
	store.StatusRestored: "Plot restored",
}

// StatusLabel returns the display label for a status. Unknown statuses
// echo verbatim so forward-compatible hosts render something sensible.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}
