package model

import "time"

// ClaimStatus is the lifecycle state of a claim
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"  // Accepted, no market attached yet
	StatusMatched  ClaimStatus = "matched"  // Linked to a market, position open
	StatusResolved ClaimStatus = "resolved" // Final outcome recorded
)

// FlagReason marks a claim for human attention without changing its status.
// Causes are non-overlapping: a claim carries at most one flag at a time.
type FlagReason string

const (
	FlagNone             FlagReason = ""
	FlagQualityGate      FlagReason = "quality_gate"      // TR Index below acceptance threshold
	FlagNoMarketMatch    FlagReason = "no_market_match"   // Matcher found nothing above the review band
	FlagTimeframeExpired FlagReason = "timeframe_expired" // Deadline passed without resolution
)

// Outcome is the final result of a resolved claim
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeYes  Outcome = "yes"
	OutcomeNo   Outcome = "no"
)

// Category tags a claim's domain
type Category string

const (
	CategoryEconomy  Category = "economy"
	CategoryPolitics Category = "politics"
	CategoryTech     Category = "tech"
	CategoryCrypto   Category = "crypto"
	CategoryMarkets  Category = "markets"
	CategorySports   Category = "sports"
	CategoryScience  Category = "science"
	CategoryCulture  Category = "culture"
	CategoryOther    Category = "other"
)

// Categories lists the fixed enumerated set extraction must draw from
var Categories = []Category{
	CategoryEconomy, CategoryPolitics, CategoryTech, CategoryCrypto,
	CategoryMarkets, CategorySports, CategoryScience, CategoryCulture,
	CategoryOther,
}

// ParseCategory maps a free-form tag to a known category, defaulting to other
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	// Common aliases from extraction backends
	switch s {
	case "technology", "ai":
		return CategoryTech
	case "cryptocurrency", "bitcoin":
		return CategoryCrypto
	case "finance", "stocks":
		return CategoryMarkets
	}
	return CategoryOther
}

// Claim is the atomic unit of the ledger: one falsifiable prediction
// attributed to a tracked subject. Created by the ingestion pipeline;
// mutated only to add match/resolution/flag state; never deleted.
type Claim struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	CaptureID string `json:"capture_id,omitempty"` // Originating RawCapture, if any

	Text       string    `json:"text"`
	Quote      string    `json:"quote"` // Verbatim quote from the source
	SourceURL  string    `json:"source_url"`
	CapturedAt time.Time `json:"captured_at"`

	Confidence float64   `json:"confidence"` // [0,1], from the five-level ordinal scale
	Category   Category  `json:"category"`
	ResolveBy  time.Time `json:"resolve_by"` // Point after which the claim is falsifiable

	// Tamper-evidence fields. ContentHash is unique system-wide (dedup key);
	// the chain fields bind the claim into the global append-only ledger.
	ContentHash   string `json:"content_hash"`
	ChainHash     string `json:"chain_hash"`
	PrevChainHash string `json:"prev_chain_hash"`
	ChainIndex    int64  `json:"chain_index"`

	Status   ClaimStatus `json:"status"`
	Flag     FlagReason  `json:"flag,omitempty"`
	FlagNote string      `json:"flag_note,omitempty"`

	Quality *QualityScore `json:"quality,omitempty"`

	Outcome         Outcome    `json:"outcome,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Flagged reports whether the claim carries any flag
func (c *Claim) Flagged() bool {
	return c.Flag != FlagNone
}

// QualityTier bands the TR Index total at fixed cutoffs
type QualityTier string

const (
	TierNone   QualityTier = ""
	TierBronze QualityTier = "bronze" // total >= 40
	TierSilver QualityTier = "silver" // total >= 60
	TierGold   QualityTier = "gold"   // total >= 80
)

// QualityScore is the persisted TR Index breakdown for a claim
type QualityScore struct {
	Specificity   int `json:"specificity"`   // 0-25
	Verifiability int `json:"verifiability"` // 0-25
	Boldness      int `json:"boldness"`      // 0-20
	Relevance     int `json:"relevance"`     // 0-15
	Stakes        int `json:"stakes"`        // 0-15
	Total         int `json:"total"`         // 0-100

	Passed          bool        `json:"passed"`
	Tier            QualityTier `json:"tier,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
}
