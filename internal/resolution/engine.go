// Package resolution settles matched claims against market outcomes,
// flags expired timeframes, and rebuilds per-subject aggregates.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/trackrecord/internal/market"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/position"
	"github.com/ppiankov/trackrecord/internal/store"
)

// SettledThreshold is the side price at which an inactive market counts
// as decided. Below it an inactive market stays inconclusive.
const SettledThreshold = 0.95

// Store is the persistence the engine needs
type Store interface {
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	ListClaimsByStatus(ctx context.Context, status model.ClaimStatus) ([]model.Claim, error)
	ListClaimsBySubject(ctx context.Context, subjectID string) ([]model.Claim, error)
	ListUnresolvedPastDeadline(ctx context.Context, now time.Time) ([]model.Claim, error)
	UpdateClaimStatus(ctx context.Context, id string, status model.ClaimStatus, flag model.FlagReason, flagNote string) error
	RecordResolution(ctx context.Context, id string, outcome model.Outcome, resolvedAt time.Time, notes string) error
	GetMatchByClaim(ctx context.Context, claimID string) (*model.MarketMatch, error)
	GetPositionByClaim(ctx context.Context, claimID string) (*model.Position, error)
	ClosePosition(ctx context.Context, p *model.Position) error
	ListSubjects(ctx context.Context) ([]model.TrackedSubject, error)
	ListPositionsBySubject(ctx context.Context, subjectID string) ([]model.Position, error)
	UpsertMetrics(ctx context.Context, m *model.SubjectMetrics) error
}

// Engine runs the resolution cycle
type Engine struct {
	store  Store
	source market.Source
	log    *zap.Logger
	now    func() time.Time
}

// New creates a resolution engine
func New(st Store, source market.Source, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: st, source: source, log: log, now: time.Now}
}

// RunCycle checks every matched claim against its market, flags expired
// timeframes, and recomputes subject metrics. Per-claim failures are
// recorded in the summary and do not abort the cycle.
func (e *Engine) RunCycle(ctx context.Context) (model.ResolutionSummary, error) {
	var summary model.ResolutionSummary

	matched, err := e.store.ListClaimsByStatus(ctx, model.StatusMatched)
	if err != nil {
		return summary, fmt.Errorf("list matched claims: %w", err)
	}

	for i := range matched {
		if ctx.Err() != nil {
			summary.TimedOut = true
			break
		}
		c := &matched[i]
		summary.Checked++

		resolved, err := e.resolveAgainstMarket(ctx, c)
		if err != nil {
			summary.AddError(fmt.Sprintf("claim %s: %v", c.ID, err))
			e.log.Warn("resolution check failed", zap.String("claim_id", c.ID), zap.Error(err))
			continue
		}
		if resolved {
			summary.MarketResolved++
		} else {
			summary.Inconclusive++
		}
	}

	if !summary.TimedOut {
		flagged, err := e.flagExpired(ctx)
		if err != nil {
			summary.AddError(fmt.Sprintf("timeframe pass: %v", err))
		}
		summary.TimeframeFlagged = flagged
	}

	if err := e.RecomputeMetrics(ctx); err != nil {
		summary.AddError(fmt.Sprintf("metrics: %v", err))
	}

	e.log.Info("resolution cycle complete",
		zap.Int("checked", summary.Checked),
		zap.Int("resolved", summary.MarketResolved),
		zap.Int("timeframe_flagged", summary.TimeframeFlagged),
		zap.Int("inconclusive", summary.Inconclusive),
	)
	return summary, nil
}

// resolveAgainstMarket settles one matched claim if its market has
// decided. Returns true when the claim reached a final outcome.
func (e *Engine) resolveAgainstMarket(ctx context.Context, c *model.Claim) (bool, error) {
	match, err := e.store.GetMatchByClaim(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("load match: %w", err)
	}

	mkt, err := e.source.GetByID(ctx, match.MarketID)
	if err != nil {
		return false, fmt.Errorf("fetch market %s: %w", match.MarketID, err)
	}
	if mkt == nil {
		// Market delisted; leave the claim for manual resolution
		return false, nil
	}
	if mkt.Active {
		return false, nil
	}

	outcome, settled := decideOutcome(mkt)
	if !settled {
		// Inactive but no side is decisive. Do not guess.
		return false, nil
	}

	yes := mkt.YesPrice()
	notes := fmt.Sprintf("market %s settled, yes price %.2f", mkt.ID, yes)
	return true, e.settle(ctx, c, outcome, &yes, notes)
}

// decideOutcome reads a final verdict off an inactive market's prices.
// A side must clear SettledThreshold to count as the winner.
func decideOutcome(mkt *model.Market) (model.Outcome, bool) {
	yes := mkt.YesPrice()
	if yes >= SettledThreshold {
		return model.OutcomeYes, true
	}
	if yes <= 1-SettledThreshold {
		return model.OutcomeNo, true
	}
	return model.OutcomeNone, false
}

// ResolveClaimManually records a human-decided outcome for any
// unresolved claim, with or without a market attached
func (e *Engine) ResolveClaimManually(ctx context.Context, claimID string, outcome model.Outcome, notes string) error {
	if outcome != model.OutcomeYes && outcome != model.OutcomeNo {
		return fmt.Errorf("outcome must be yes or no, got %q", outcome)
	}
	c, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status == model.StatusResolved {
		return fmt.Errorf("claim %s already resolved", claimID)
	}
	return e.settle(ctx, c, outcome, nil, notes)
}

// settle finalizes a claim and closes its position if one exists
func (e *Engine) settle(ctx context.Context, c *model.Claim, outcome model.Outcome, settlementPrice *float64, notes string) error {
	now := e.now()

	pos, err := e.store.GetPositionByClaim(ctx, c.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// No position to close (claim resolved before matching)
	case err != nil:
		return fmt.Errorf("load position: %w", err)
	case pos.Status == model.PositionOpen:
		if err := position.Close(pos, outcome, settlementPrice, now); err != nil {
			return fmt.Errorf("close position: %w", err)
		}
		if err := e.store.ClosePosition(ctx, pos); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("persist close: %w", err)
		}
	}

	if err := e.store.RecordResolution(ctx, c.ID, outcome, now, notes); err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}

	e.log.Info("claim resolved",
		zap.String("claim_id", c.ID),
		zap.String("outcome", string(outcome)),
	)
	return nil
}

// flagExpired marks unresolved claims whose resolve-by point has passed.
// Flag only: expiry is not an outcome, the claim stays open for manual
// or late market resolution.
func (e *Engine) flagExpired(ctx context.Context) (int, error) {
	expired, err := e.store.ListUnresolvedPastDeadline(ctx, e.now())
	if err != nil {
		return 0, err
	}

	flagged := 0
	for i := range expired {
		c := &expired[i]
		note := fmt.Sprintf("resolve-by %s passed without resolution", c.ResolveBy.Format("2006-01-02"))
		if err := e.store.UpdateClaimStatus(ctx, c.ID, c.Status, model.FlagTimeframeExpired, note); err != nil {
			return flagged, err
		}
		flagged++
	}
	return flagged, nil
}

// RecomputeMetrics rebuilds every subject's aggregate from the full
// claim and position history. Idempotent; never the source of truth.
func (e *Engine) RecomputeMetrics(ctx context.Context) error {
	subjects, err := e.store.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}

	now := e.now()
	all := make([]*model.SubjectMetrics, 0, len(subjects))
	for _, sub := range subjects {
		m, err := e.computeSubject(ctx, sub.ID, now)
		if err != nil {
			return fmt.Errorf("subject %s: %w", sub.ID, err)
		}
		all = append(all, m)
	}

	// Rank by total PnL, best first
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TotalPnL > all[j].TotalPnL
	})
	for i, m := range all {
		m.Rank = i + 1
		if err := e.store.UpsertMetrics(ctx, m); err != nil {
			return fmt.Errorf("store metrics for %s: %w", m.SubjectID, err)
		}
	}
	return nil
}

func (e *Engine) computeSubject(ctx context.Context, subjectID string, now time.Time) (*model.SubjectMetrics, error) {
	claims, err := e.store.ListClaimsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	positions, err := e.store.ListPositionsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	m := &model.SubjectMetrics{SubjectID: subjectID, ComputedAt: now}

	var qualitySum, qualityCount int
	for i := range claims {
		c := &claims[i]
		m.TotalClaims++
		switch c.Status {
		case model.StatusResolved:
			m.ResolvedClaims++
			if c.Outcome == model.OutcomeYes {
				m.Wins++
			} else if c.Outcome == model.OutcomeNo {
				m.Losses++
			}
		default:
			m.PendingClaims++
		}
		if c.Quality != nil {
			qualitySum += c.Quality.Total
			qualityCount++
		}
	}
	if m.ResolvedClaims > 0 {
		m.WinRate = float64(m.Wins) / float64(m.ResolvedClaims)
	}
	if qualityCount > 0 {
		m.AvgQuality = float64(qualitySum) / float64(qualityCount)
	}

	cut30 := now.AddDate(0, 0, -30)
	cut90 := now.AddDate(0, 0, -90)
	for i := range positions {
		p := &positions[i]
		if p.Status != model.PositionClosed || p.ClosedAt == nil {
			continue
		}
		m.TotalPnL += p.RealizedPnL
		if p.ClosedAt.After(cut30) {
			m.Rolling30d += p.RealizedPnL
		}
		if p.ClosedAt.After(cut90) {
			m.Rolling90d += p.RealizedPnL
		}
	}
	return m, nil
}
