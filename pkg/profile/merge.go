package profile

import (
	"strings"

	"github.com/kittclouds/plotweave/internal/store"
)

// placeholderValues are generation-side filler strings that must never
// overwrite real prior analysis data.
var placeholderValues = map[string]bool{
	"no data available": true,
	"no data":           true,
	"not available":     true,
	"none":              true,
	"n/a":               true,
	"unknown":           true,
}

func isPlaceholder(s string) bool {
	return placeholderValues[strings.ToLower(strings.TrimSpace(s))]
}

// mergeProfile applies the preserve-unless-overwritten rule: the update
// wins only where it actually carries a value. PlotText and Status are
// the mandatory payload of every save and always overwrite.
func mergeProfile(base *store.ConversationProfile, u Update, historyLimit int) *store.ConversationProfile {
	out := *base

	out.PlotText = u.PlotText
	out.Status = u.Status

	if u.ParticipantName != "" {
		out.ParticipantName = u.ParticipantName
	}

	if len(u.PlotHistory) > 0 {
		out.PlotHistory = boundHistory(u.PlotHistory, historyLimit)
	} else {
		out.PlotHistory = boundHistory(base.PlotHistory, historyLimit)
	}

	if len(u.PushDirections) > 0 {
		out.RecentDirections = pushDirections(base.RecentDirections, u.PushDirections)
	}

	out.ArcSnapshot = mergeSnapshot(base.ArcSnapshot, u.ArcSnapshot)

	if u.SidebarCollapsed != nil {
		out.SidebarCollapsed = *u.SidebarCollapsed
	}
	if u.ChatLength > 0 {
		out.ChatLength = u.ChatLength
	}
	if u.LastMessageTime > 0 {
		out.LastMessageTime = u.LastMessageTime
	}

	return &out
}

// boundHistory sorts most-recent-first and truncates to the limit.
func boundHistory(entries []store.PlotEntry, limit int) []store.PlotEntry {
	if len(entries) == 0 {
		return nil
	}
	out := append([]store.PlotEntry(nil), entries...)
	// Insertion sort: histories are short and usually already ordered.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Timestamp > out[j-1].Timestamp; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// pushDirections prepends new hints to the stored ones, drops duplicates
// keeping the most recent occurrence, and caps the list.
func pushDirections(existing, incoming []string) []string {
	out := make([]string, 0, maxRecentDirections)
	seen := make(map[string]bool)

	for _, lists := range [][]string{incoming, existing} {
		for _, d := range lists {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			norm := strings.ToLower(d)
			if seen[norm] {
				continue
			}
			seen[norm] = true
			out = append(out, d)
			if len(out) == maxRecentDirections {
				return out
			}
		}
	}
	return out
}

// mergeSnapshot replaces structural arc state wholesale but merges the
// analysis sub-fields one by one, rejecting placeholders.
func mergeSnapshot(base, update *store.ArcSnapshot) *store.ArcSnapshot {
	if update == nil {
		return base
	}

	out := *update
	if base != nil {
		out.CharacterAnalysis = mergeAnalysisField(base.CharacterAnalysis, update.CharacterAnalysis)
		out.WorldContext = mergeAnalysisField(base.WorldContext, update.WorldContext)
		out.Tone = mergeAnalysisField(base.Tone, update.Tone)
		out.Pacing = mergeAnalysisField(base.Pacing, update.Pacing)
	}
	return &out
}

func mergeAnalysisField(old, incoming string) string {
	if strings.TrimSpace(incoming) == "" || isPlaceholder(incoming) {
		return old
	}
	return incoming
}
