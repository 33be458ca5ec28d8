package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/trackrecord/internal/model"
)

// ApproveReview accepts a suggested match: the market is linked to the
// claim at its current price and a position opens, exactly as an
// auto-tier match would have.
func (p *Pipeline) ApproveReview(ctx context.Context, reviewID, notes string) error {
	entry, err := p.store.GetReviewEntry(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("load review entry: %w", err)
	}
	if entry.Status != model.ReviewPending {
		return fmt.Errorf("review %s already decided (%s)", reviewID, entry.Status)
	}

	claim, err := p.store.GetClaim(ctx, entry.ClaimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if claim.Status != model.StatusPending {
		return fmt.Errorf("claim %s is %s, not pending", claim.ID, claim.Status)
	}

	mkt, err := p.markets.GetByID(ctx, entry.MarketID)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}
	if mkt == nil {
		return fmt.Errorf("market %s no longer listed", entry.MarketID)
	}

	best := &model.MatchCandidate{
		MarketID:   entry.MarketID,
		Question:   entry.Question,
		Similarity: entry.Similarity,
		YesPrice:   mkt.YesPrice(),
		Active:     mkt.Active,
	}
	if err := p.linkMatch(ctx, claim, best, nil, model.MatchSuggested); err != nil {
		return err
	}
	return p.store.DecideReview(ctx, reviewID, model.ReviewApproved, notes, p.now())
}

// RejectReview declines a suggested match. The claim goes back to
// unmatched and is flagged so it surfaces for manual attention.
func (p *Pipeline) RejectReview(ctx context.Context, reviewID, notes string) error {
	entry, err := p.store.GetReviewEntry(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("load review entry: %w", err)
	}
	if entry.Status != model.ReviewPending {
		return fmt.Errorf("review %s already decided (%s)", reviewID, entry.Status)
	}

	if err := p.store.DecideReview(ctx, reviewID, model.ReviewRejected, notes, p.now()); err != nil {
		return err
	}
	return p.store.UpdateClaimStatus(ctx, entry.ClaimID, model.StatusPending,
		model.FlagNoMarketMatch, "suggested match rejected by reviewer")
}
