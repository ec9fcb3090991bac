package profile

import (
	"github.com/kittclouds/plotweave/internal/store"
)

// RestoredView is the caller-facing state rebuilt from a loaded profile.
type RestoredView struct {
	PlotText         string             `json:"plotText"`
	Status           string             `json:"status"`
	PlotHistory      []store.PlotEntry  `json:"plotHistory,omitempty"`
	RecentDirections []string           `json:"recentDirections,omitempty"`
	Arc              *store.ArcSnapshot `json:"arc,omitempty"`
	SidebarCollapsed bool               `json:"sidebarCollapsed"`
	UpdatedAt        int64              `json:"updatedAt"`
}

// Restore projects a loaded profile into view state. It is a pure
// function: restoration never counts as a new write, so nothing here may
// reach either backend. Profiles persisted before the status field
// existed surface as "restored" when they carry plot text.
func Restore(p *store.ConversationProfile) *RestoredView {
	if p == nil {
		return nil
	}

	status := p.Status
	if status == "" && p.PlotText != "" {
		status = store.StatusRestored
	}

	return &RestoredView{
		PlotText:         p.PlotText,
		Status:           status,
		PlotHistory:      boundHistory(p.PlotHistory, 0),
		RecentDirections: append([]string(nil), p.RecentDirections...),
		Arc:              p.ArcSnapshot,
		SidebarCollapsed: p.SidebarCollapsed,
		UpdatedAt:        p.UpdatedAt,
	}
}
