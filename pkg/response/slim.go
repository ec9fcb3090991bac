// Package response provides optimized JSON response builders
// that only serialize fields actually used by the JS client
package response

import (
	"encoding/json"

	"github.com/kittclouds/plotweave/internal/store"
	"github.com/kittclouds/plotweave/pkg/arc"
	"github.com/kittclouds/plotweave/pkg/profile"
)

// SlimArc is a minimal arc snapshot for JS consumption
// Only includes fields the sidebar actually renders
type SlimArc struct {
	TemplateName string `json:"templateName"`
	PhaseName    string `json:"phaseName"`
	Progress     int    `json:"progress"`
	Completed    int    `json:"completed"`
}

// SlimSuggestion contains only the fields JS uses
type SlimSuggestion struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Branch string `json:"branch,omitempty"`
}

// SlimProfile is the minimal restored-state response for JS
type SlimProfile struct {
	PlotText         string   `json:"plotText"`
	Status           string   `json:"status"`
	StatusLabel      string   `json:"statusLabel"`
	Arc              *SlimArc `json:"arc,omitempty"`
	RecentDirections []string `json:"recentDirections,omitempty"`
	SidebarCollapsed bool     `json:"sidebarCollapsed"`
	Source           string   `json:"source"`
	// Plot history is omitted - the sidebar loads it on demand
}

// SlimIndexEntry is one row of the conversation picker
type SlimIndexEntry struct {
	Key             string `json:"key"`
	ParticipantName string `json:"participantName"`
	LastActive      int64  `json:"lastActive"`
	ChatLength      int    `json:"chatLength"`
}

// FromSnapshot converts a full arc snapshot to SlimArc
func FromSnapshot(snap *store.ArcSnapshot) *SlimArc {
	if snap == nil || snap.TemplateID == "" {
		return nil
	}
	return &SlimArc{
		TemplateName: snap.TemplateName,
		PhaseName:    snap.PhaseName,
		Progress:     snap.Progress,
		Completed:    len(snap.CompletedPhases),
	}
}

// FromSuggestions converts machine suggestions to their slim form
func FromSuggestions(suggestions []arc.Suggestion) []SlimSuggestion {
	out := make([]SlimSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, SlimSuggestion{
			Kind:   s.Kind,
			Label:  s.Label,
			Branch: s.Branch,
		})
	}
	return out
}

// MarshalProfile creates a minimal JSON response for a restored profile
func MarshalProfile(view *profile.RestoredView, source profile.Source, statusLabel string) ([]byte, error) {
	if view == nil {
		return json.Marshal(nil)
	}
	resp := SlimProfile{
		PlotText:         view.PlotText,
		Status:           view.Status,
		StatusLabel:      statusLabel,
		Arc:              FromSnapshot(view.Arc),
		RecentDirections: view.RecentDirections,
		SidebarCollapsed: view.SidebarCollapsed,
		Source:           string(source),
	}
	return json.Marshal(resp)
}

// MarshalIndex creates a minimal JSON response for the conversation index
func MarshalIndex(entries []*store.IndexEntry) ([]byte, error) {
	out := make([]SlimIndexEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SlimIndexEntry{
			Key:             e.Key,
			ParticipantName: e.ParticipantName,
			LastActive:      e.LastActive,
			ChatLength:      e.ChatLength,
		})
	}
	return json.Marshal(out)
}
