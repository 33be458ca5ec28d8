// Package position simulates paper trades opened against market-matched
// claims. Sizing follows a fixed confidence ladder; no real orders are
// ever placed.
package position

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
)

// MinEntryPrice floors the entry price used to compute shares. A near-zero
// entry would otherwise produce an absurd share count.
const MinEntryPrice = 0.01

var ErrAlreadyClosed = errors.New("position already closed")

// sizeLadder maps extraction confidence to simulated stake, in
// descending confidence order.
var sizeLadder = []struct {
	confidence float64
	size       float64
}{
	{0.95, 1000},
	{0.80, 500},
	{0.60, 300},
	{0.40, 100},
	{0.25, 50},
}

// SizeFor returns the stake for a confidence value. Confidence between
// ladder steps snaps to the nearest step; a distance tie keeps the
// higher-confidence step.
func SizeFor(confidence float64) float64 {
	best := sizeLadder[0]
	bestDist := dist(confidence, best.confidence)
	for _, step := range sizeLadder[1:] {
		if d := dist(confidence, step.confidence); d < bestDist {
			best, bestDist = step, d
		}
	}
	return best.size
}

func dist(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Open creates a simulated position for a matched claim
func Open(claim *model.Claim, match *model.MarketMatch, now time.Time) *model.Position {
	entry := match.EntryPrice
	if entry < MinEntryPrice {
		entry = MinEntryPrice
	}
	size := SizeFor(claim.Confidence)
	return &model.Position{
		ID:         uuid.New().String(),
		ClaimID:    claim.ID,
		SubjectID:  claim.SubjectID,
		MarketID:   match.MarketID,
		EntryPrice: entry,
		Size:       size,
		Shares:     size / entry,
		Status:     model.PositionOpen,
		OpenedAt:   now.UTC(),
	}
}

// Close settles an open position. When the market reported a final
// settlement price it is used as the exit; otherwise the exit is binary
// on the outcome (1.0 for a win, 0.0 for a loss).
func Close(p *model.Position, outcome model.Outcome, settlementPrice *float64, now time.Time) error {
	if p.Status == model.PositionClosed {
		return ErrAlreadyClosed
	}

	var exit float64
	switch {
	case settlementPrice != nil:
		exit = *settlementPrice
	case outcome == model.OutcomeYes:
		exit = 1.0
	default:
		exit = 0.0
	}

	closedAt := now.UTC()
	p.ExitPrice = exit
	p.Outcome = outcome
	p.RealizedPnL = p.Shares * (exit - p.EntryPrice)
	p.Status = model.PositionClosed
	p.ClosedAt = &closedAt
	return nil
}

// Exposure sums the stake of the given open positions
func Exposure(positions []model.Position) float64 {
	var total float64
	for _, p := range positions {
		if p.Status == model.PositionOpen {
			total += p.Size
		}
	}
	return total
}

// Ladder returns the sizing steps, largest stake first. Read-only view
// for display.
func Ladder() map[float64]float64 {
	out := make(map[float64]float64, len(sizeLadder))
	for _, step := range sizeLadder {
		out[step.confidence] = step.size
	}
	return out
}

// LadderConfidences returns the ladder's confidence steps in descending
// order
func LadderConfidences() []float64 {
	out := make([]float64, 0, len(sizeLadder))
	for _, step := range sizeLadder {
		out = append(out, step.confidence)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}
