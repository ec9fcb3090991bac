// Package store provides the persistence data layer for PlotWeave.
// It owns the per-conversation profile record, the local SQLite fallback
// cache, and the recency index used for cross-conversation navigation
// and quota eviction.
package store

import (
	"context"
	"errors"
)

// Profile status values. The enum is open on purpose: unknown values read
// from storage are preserved verbatim to tolerate version skew between
// the host UI and this module.
const (
	StatusReady    = "ready"
	StatusPending  = "pending"
	StatusInjected = "injected"
	StatusRestored = "restored"
)

// PlotEntry is one generated plot beat in a conversation's history.
type PlotEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ArcSnapshot is the serialized view of arc state embedded in a profile.
// The analysis sub-fields are produced by the generation side and merge
// individually; placeholder strings never overwrite real prior data.
type ArcSnapshot struct {
	TemplateID      string   `json:"templateId"`
	TemplateName    string   `json:"templateName"`
	PhaseName       string   `json:"phaseName"`
	PhaseIndex      int      `json:"phaseIndex"`
	TotalPhases     int      `json:"totalPhases"`
	Progress        int      `json:"progress"`
	CompletedPhases []string `json:"completedPhases,omitempty"`
	ArchivedCount   int      `json:"archivedCount"`

	CharacterAnalysis string `json:"characterAnalysis,omitempty"`
	WorldContext      string `json:"worldContext,omitempty"`
	Tone              string `json:"tone,omitempty"`
	Pacing            string `json:"pacing,omitempty"`
}

// ConversationProfile is the durable per-conversation record, one per
// (participantId, conversationId) pair.
type ConversationProfile struct {
	PlotText         string       `json:"plotText,omitempty"`
	Status           string       `json:"status,omitempty"`
	UpdatedAt        int64        `json:"updatedAt"`
	ParticipantID    string       `json:"participantId"`
	ParticipantName  string       `json:"participantName,omitempty"`
	PlotHistory      []PlotEntry  `json:"plotHistory,omitempty"`
	RecentDirections []string     `json:"recentDirections,omitempty"`
	ArcSnapshot      *ArcSnapshot `json:"arcSnapshot,omitempty"`
	SidebarCollapsed bool         `json:"sidebarCollapsed,omitempty"`
	ChatLength       int          `json:"chatLength,omitempty"`
	LastMessageTime  int64        `json:"lastMessageTime,omitempty"`
}

// IndexEntry is the per-conversation summary kept in the recency index
// over the local fallback cache.
type IndexEntry struct {
	Key              string `json:"key"`
	ParticipantID    string `json:"participantId"`
	ParticipantName  string `json:"participantName,omitempty"`
	LastActive       int64  `json:"lastActive"`
	PlotHistoryCount int    `json:"plotHistoryCount"`
	ChatLength       int    `json:"chatLength"`
}

// Storage failure taxonomy. Callers match with errors.Is.
var (
	// ErrQuotaExceeded reports that a cache write would exceed the
	// configured byte quota. Recoverable via eviction plus one retry.
	ErrQuotaExceeded = errors.New("store: quota exceeded")

	// ErrAbsent reports that the authoritative sync store holds no
	// record for the conversation.
	ErrAbsent = errors.New("store: record absent")
)

// SyncStore is the host-owned authoritative backend. It is assumed
// durable, slow, and possibly cross-device. Put/Get carry the raw
// profile JSON; decoding stays with the coordinator.
type SyncStore interface {
	Put(ctx context.Context, conversationID string, data []byte) error
	Get(ctx context.Context, conversationID string) ([]byte, error)
}
