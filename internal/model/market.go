package model

import "time"

// Market is an external binary-outcome contract as reported by the
// market data source. Shape follows the gamma-style listing APIs.
type Market struct {
	ID            string             `json:"id"`
	Slug          string             `json:"slug"`
	Question      string             `json:"question"`
	EndDate       time.Time          `json:"end_date"`
	OutcomePrices map[string]float64 `json:"outcome_prices"` // e.g. {"Yes": 0.62, "No": 0.38}
	Volume        float64            `json:"volume"`
	Active        bool               `json:"active"`
}

// YesPrice returns the current price of the affirmative side, or 0.5 if
// the market reports no prices.
func (m *Market) YesPrice() float64 {
	for name, p := range m.OutcomePrices {
		if name == "Yes" || name == "YES" || name == "yes" {
			return p
		}
	}
	return 0.5
}

// MatchType records how a market got attached to a claim
type MatchType string

const (
	MatchAuto       MatchType = "auto"       // Similarity above the auto threshold
	MatchSuggested  MatchType = "suggested"  // In the review band, awaiting a human
	MatchHistorical MatchType = "historical" // Attached retroactively during backfill
	MatchManual     MatchType = "manual"     // Attached by an administrator
)

// MarketMatch links exactly one claim to one external market contract.
// One-to-one with Claim.
type MarketMatch struct {
	ID       string `json:"id"`
	ClaimID  string `json:"claim_id"`
	MarketID string `json:"market_id"`

	Question   string    `json:"question"`
	Similarity float64   `json:"similarity"`
	Type       MatchType `json:"type"`
	EntryPrice float64   `json:"entry_price"` // Yes-side price snapshot at match time

	// Runner-up candidates kept for reviewer context
	Alternatives []MatchCandidate `json:"alternatives,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MatchCandidate is one scored market considered by the matcher
type MatchCandidate struct {
	MarketID   string  `json:"market_id"`
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
	YesPrice   float64 `json:"yes_price"`
	Active     bool    `json:"active"`
}

// ReviewStatus is the adjudication state of a queued match
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewQueueEntry is a pending human adjudication of a suggested match
type ReviewQueueEntry struct {
	ID         string       `json:"id"`
	ClaimID    string       `json:"claim_id"`
	MarketID   string       `json:"market_id"`
	Question   string       `json:"question"`
	Similarity float64      `json:"similarity"`
	Status     ReviewStatus `json:"status"`
	Notes      string       `json:"notes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}
