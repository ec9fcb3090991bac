package profile

import (
	"testing"

	"github.com/kittclouds/plotweave/internal/store"
)

func TestRestoreNil(t *testing.T) {
	if Restore(nil) != nil {
		t.Error("expected nil view for nil profile")
	}
}

func TestRestoreInfersLegacyStatus(t *testing.T) {
	view := Restore(&store.ConversationProfile{PlotText: "old save, no status field"})
	if view.Status != store.StatusRestored {
		t.Errorf("expected inferred %q, got %q", store.StatusRestored, view.Status)
	}

	// No plot text means nothing to restore a status for
	view = Restore(&store.ConversationProfile{})
	if view.Status != "" {
		t.Errorf("expected empty status, got %q", view.Status)
	}

	// A stored status always wins
	view = Restore(&store.ConversationProfile{PlotText: "x", Status: store.StatusInjected})
	if view.Status != store.StatusInjected {
		t.Errorf("expected stored status kept, got %q", view.Status)
	}
}

func TestRestoreDoesNotAliasProfile(t *testing.T) {
	p := &store.ConversationProfile{
		PlotText:         "text",
		Status:           store.StatusReady,
		RecentDirections: []string{"storm"},
		PlotHistory:      []store.PlotEntry{{ID: "a", Timestamp: 1}},
	}

	view := Restore(p)
	view.RecentDirections[0] = "mutated"
	view.PlotHistory[0].ID = "mutated"

	if p.RecentDirections[0] != "storm" {
		t.Error("view mutation leaked into profile directions")
	}
	if p.PlotHistory[0].ID != "a" {
		t.Error("view mutation leaked into profile history")
	}
}
