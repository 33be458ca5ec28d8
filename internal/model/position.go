package model

import "time"

// PositionStatus is open or closed; a closed position is immutable
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is a paper-trading record derived from a claim and its market
// match. Purely notional: it exists to produce comparable accuracy and
// return metrics per subject, no capital moves.
type Position struct {
	ID        string `json:"id"`
	ClaimID   string `json:"claim_id"`
	SubjectID string `json:"subject_id"`
	MarketID  string `json:"market_id"`

	EntryPrice float64 `json:"entry_price"`
	Size       float64 `json:"size"`   // Notional units, from the confidence step function
	Shares     float64 `json:"shares"` // size / entry_price

	Status PositionStatus `json:"status"`

	ExitPrice   float64    `json:"exit_price,omitempty"`
	Outcome     Outcome    `json:"outcome,omitempty"`
	RealizedPnL float64    `json:"realized_pnl,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	OpenedAt time.Time `json:"opened_at"`
}

// UnrealizedPnL values an open position at the given current price
func (p *Position) UnrealizedPnL(currentPrice float64) float64 {
	if p.Status == PositionClosed {
		return 0
	}
	return p.Shares*currentPrice - p.Size
}
