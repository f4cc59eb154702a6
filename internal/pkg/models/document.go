package models

import "time"

// SlimEventDocument is the persisted unit of the raw per-provider
// collection. One document per (eventId, source); repeated runs replace
// the whole document, the Raw payload is never merged.
type SlimEventDocument struct {
	EventID         string         `json:"eventId"`
	Source          string         `json:"source"`
	CapturedAt      time.Time      `json:"capturedAt"`
	MatchName       string         `json:"matchName,omitempty"`
	StartTime       time.Time      `json:"startTime,omitempty"`
	CompetitionID   string         `json:"competitionId,omitempty"`
	CompetitionName string         `json:"competitionName,omitempty"`
	Raw             map[string]any `json:"raw,omitempty"`
}

// ProviderSnapshot is one provider's latest contribution to a normalized
// event. The provider tag is the key of the sources mapping: a later
// snapshot from the same provider replaces the earlier one.
type ProviderSnapshot struct {
	Provider   string         `json:"provider"`
	EventID    string         `json:"eventId,omitempty"`
	CapturedAt time.Time      `json:"capturedAt,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// NormalizedEvent is the cross-provider merged unit, keyed by
// NormalizedID. Home, Away and Kickoff are first-writer-wins: once set
// they are never overwritten by a later merge.
type NormalizedEvent struct {
	NormalizedID string             `json:"normalizedId"`
	EventID      string             `json:"eventId,omitempty"`
	Home         string             `json:"home,omitempty"`
	Away         string             `json:"away,omitempty"`
	Kickoff      time.Time          `json:"kickoff,omitempty"`
	Sources      []ProviderSnapshot `json:"sources,omitempty"`
	CreatedAt    time.Time          `json:"createdAt,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt,omitempty"`
}

// Key returns the storage key for the document: NormalizedID when set,
// otherwise the triggering EventID. Empty when neither is present.
func (e NormalizedEvent) Key() string {
	if e.NormalizedID != "" {
		return e.NormalizedID
	}
	return e.EventID
}
