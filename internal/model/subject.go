package model

import "time"

// TrackedSubject is a person whose public predictions are tracked.
// Created on first mention by the entity resolver or by seeding;
// never deleted (the historical record must survive the person's feed).
type TrackedSubject struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Handle      string   `json:"handle"` // Canonical lowercase handle, unique
	Title       string   `json:"title,omitempty"`
	Affiliation string   `json:"affiliation,omitempty"`
	Domains     []string `json:"domains,omitempty"` // Domain tags, e.g. "macro", "crypto"
	Verified    bool     `json:"verified"`

	CreatedAt time.Time `json:"created_at"`
}

// SubjectMetrics is a derived aggregate per subject, rebuildable at any
// time from the full claim/position history. Never the source of truth.
type SubjectMetrics struct {
	SubjectID string `json:"subject_id"`

	TotalClaims    int `json:"total_claims"`
	ResolvedClaims int `json:"resolved_claims"`
	PendingClaims  int `json:"pending_claims"`
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`

	WinRate     float64 `json:"win_rate"` // wins / resolved
	TotalPnL    float64 `json:"total_pnl"`
	Rolling30d  float64 `json:"rolling_30d_pnl"`
	Rolling90d  float64 `json:"rolling_90d_pnl"`
	AvgQuality  float64 `json:"avg_quality"` // Mean TR Index total over scored claims
	Rank        int     `json:"rank"`
	ComputedAt  time.Time `json:"computed_at"`
}
