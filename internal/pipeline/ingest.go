package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/ledger"
	"github.com/ppiankov/trackrecord/internal/market"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/position"
	"github.com/ppiankov/trackrecord/internal/score"
	"github.com/ppiankov/trackrecord/internal/store"
	"github.com/ppiankov/trackrecord/internal/worker"
)

// RunCycle executes one ingestion pass over all configured feeds.
// The cycle budget bounds the whole pass; items left unprocessed when
// it expires are picked up by the next cycle via URL dedup.
func (p *Pipeline) RunCycle(ctx context.Context) (model.IngestionSummary, error) {
	var summary model.IngestionSummary

	if p.cfg.Cycle.IngestionBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Cycle.IngestionBudget)
		defer cancel()
	}

	var captures []model.RawCapture
	for _, feed := range p.feeds {
		if ctx.Err() != nil {
			summary.TimedOut = true
			break
		}
		items, err := feed.Fetch(ctx)
		if err != nil {
			summary.AddError(fmt.Sprintf("feed %s: %v", feed.Name(), err))
			p.log.Warn("feed fetch failed", zap.String("feed", feed.Name()), zap.Error(err))
			continue
		}
		captures = append(captures, items...)
	}
	if limit := p.cfg.Cycle.MaxItems; limit > 0 && len(captures) > limit {
		captures = captures[:limit]
	}
	summary.Fetched = len(captures)

	pool := worker.NewPool(ctx, p.cfg.Concurrency.Workers)
	pool.Start()
	for i := range captures {
		pool.Submit(&captureJob{p: p, capture: &captures[i]})
	}
	for _, res := range pool.Wait() {
		item := res.(*itemResult)
		summary.Extracted += item.summary.Extracted
		summary.Stored += item.summary.Stored
		summary.Matched += item.summary.Matched
		summary.Duplicates += item.summary.Duplicates
		summary.Rejected += item.summary.Rejected
		summary.NewSubjects += item.summary.NewSubjects
		for _, msg := range item.summary.Errors {
			summary.AddError(msg)
		}
		if item.err != nil {
			summary.AddError(item.err.Error())
		}
	}
	p.rematchPending(ctx, &summary)

	if ctx.Err() != nil {
		summary.TimedOut = true
	}

	p.log.Info("ingestion cycle complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("stored", summary.Stored),
		zap.Int("matched", summary.Matched),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("rejected", summary.Rejected),
	)
	return summary, nil
}

// rematchPending retries market matching for stored claims that have no
// market yet. New contracts list continuously and a search failure is
// usually transient, so an unmatched claim gets a fresh attempt every
// cycle instead of being stranded by its first.
func (p *Pipeline) rematchPending(ctx context.Context, summary *model.IngestionSummary) {
	claims, err := p.store.ListClaimsByStatus(ctx, model.StatusPending)
	if err != nil {
		summary.AddError(fmt.Sprintf("list unmatched claims: %v", err))
		return
	}
	for i := range claims {
		c := &claims[i]
		if c.Flag != model.FlagNoMarketMatch {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		matched, err := p.matchClaim(ctx, c, model.MatchAuto)
		if err != nil {
			summary.AddError(fmt.Sprintf("rematch claim %s: %v", c.ID, err))
			continue
		}
		if matched {
			summary.Matched++
		}
	}
}

// captureJob processes one capture inside the worker pool
type captureJob struct {
	p       *Pipeline
	capture *model.RawCapture
}

// itemResult carries one capture's counts back to the cycle
type itemResult struct {
	summary model.IngestionSummary
	err     error
}

func (r *itemResult) Err() error { return r.err }

func (j *captureJob) Execute(ctx context.Context) worker.Result {
	res := &itemResult{}
	if err := j.p.processCapture(ctx, j.capture, &res.summary); err != nil {
		res.err = fmt.Errorf("capture %s: %w", j.capture.URL, err)
	}
	return res
}

// processCapture runs one capture through dedup, extraction, and claim
// creation. An error here is this item's failure only.
func (p *Pipeline) processCapture(ctx context.Context, c *model.RawCapture, summary *model.IngestionSummary) error {
	exists, err := p.store.CaptureExists(ctx, c.URLHash)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		summary.Duplicates++
		return nil
	}

	c.Body = p.fullBody(ctx, c)
	if err := p.store.CreateCapture(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			summary.Duplicates++
			return nil
		}
		return fmt.Errorf("store capture: %w", err)
	}

	result := p.extractor.Extract(ctx, extract.Request{
		Text:        c.Body,
		Author:      c.Author,
		PublishedAt: c.PublishedAt,
		SourceType:  c.SourceType,
	})
	if result.Failed() {
		if result.Reason == extract.FailureDisabled {
			return nil
		}
		return fmt.Errorf("extraction %s: %s", result.Reason, result.Detail)
	}

	kept, _ := extract.Filter(result.Candidates)
	summary.Extracted += len(kept)

	for _, cand := range kept {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.processCandidate(ctx, c, cand, model.MatchAuto, summary); err != nil {
			summary.AddError(fmt.Sprintf("claim %q: %v", truncate(cand.ClaimText, 60), err))
		}
	}
	return nil
}

// processCandidate turns one extraction candidate into a stored,
// chained, scored, and (when possible) matched claim
func (p *Pipeline) processCandidate(ctx context.Context, c *model.RawCapture, cand extract.Candidate, matchType model.MatchType, summary *model.IngestionSummary) error {
	category := model.ParseCategory(cand.Category)

	subject, created, err := p.resolver.ResolveOrCreate(ctx, cand.SubjectName, cand.SubjectTitle, "", category)
	if err != nil {
		return fmt.Errorf("resolve subject: %w", err)
	}
	if created {
		summary.NewSubjects++
	}

	confidence := extract.ConfidenceValue(cand.Confidence)
	quote := cand.Quote
	if quote == "" {
		quote = cand.ClaimText
	}

	// Cheap pre-check; the unique index still decides under races
	contentHash := ledger.ContentHash(cand.ClaimText, quote, c.URL, c.PublishedAt)
	if exists, err := p.store.ClaimExists(ctx, contentHash); err != nil {
		return fmt.Errorf("claim dedup: %w", err)
	} else if exists {
		summary.Duplicates++
		return nil
	}

	quality := p.scorer.Score(score.DeriveSignals(cand.ClaimText, confidence))

	now := p.now()
	claim := &model.Claim{
		ID:         uuid.New().String(),
		SubjectID:  subject.ID,
		CaptureID:  c.ID,
		Text:       cand.ClaimText,
		Quote:      quote,
		SourceURL:  c.URL,
		CapturedAt: c.PublishedAt,
		Confidence: confidence,
		Category:   category,
		ResolveBy:  extract.ParseTimeframe(cand.Timeframe, c.PublishedAt),
		Status:     model.StatusPending,
		Quality:    &quality,
		CreatedAt:  now,
	}
	if !quality.Passed {
		claim.Flag = model.FlagQualityGate
		claim.FlagNote = quality.RejectionReason
	}

	_, err = p.ledger.Append(ctx, claim.Text, claim.Quote, claim.SourceURL, claim.CapturedAt, func(e ledger.Entry) error {
		claim.ContentHash = e.ContentHash
		claim.ChainHash = e.ChainHash
		claim.PrevChainHash = e.PrevChainHash
		claim.ChainIndex = e.ChainIndex
		return p.store.CreateClaim(ctx, claim)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			summary.Duplicates++
			return nil
		}
		return fmt.Errorf("append claim: %w", err)
	}
	summary.Stored++

	if !quality.Passed {
		summary.Rejected++
		return nil
	}

	matched, err := p.matchClaim(ctx, claim, matchType)
	if err != nil {
		// Flag the claim so the rematch pass picks it up next cycle;
		// the capture itself is already deduplicated away.
		if uerr := p.store.UpdateClaimStatus(ctx, claim.ID, model.StatusPending,
			model.FlagNoMarketMatch, "matching failed, retrying next cycle"); uerr != nil {
			p.log.Warn("flag claim for rematch", zap.String("claim", claim.ID), zap.Error(uerr))
		}
		return fmt.Errorf("match: %w", err)
	}
	if matched {
		summary.Matched++
	}
	return nil
}

// matchClaim searches markets for the claim and acts on the best
// candidate's tier: auto-link with a position, queue for review, or
// flag the claim unmatched.
func (p *Pipeline) matchClaim(ctx context.Context, claim *model.Claim, matchType model.MatchType) (bool, error) {
	candidates, err := p.matcher.FindCandidates(ctx, claim.Text, claim.Category)
	if err != nil {
		return false, fmt.Errorf("find candidates: %w", err)
	}

	best, tier := p.matcher.SelectBest(candidates)
	switch tier {
	case market.TierAuto:
		return true, p.linkMatch(ctx, claim, best, candidates, matchType)

	case market.TierSuggested:
		entry := &model.ReviewQueueEntry{
			ID:         uuid.New().String(),
			ClaimID:    claim.ID,
			MarketID:   best.MarketID,
			Question:   best.Question,
			Similarity: best.Similarity,
			Status:     model.ReviewPending,
			CreatedAt:  p.now(),
		}
		if err := p.store.EnqueueReview(ctx, entry); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return false, fmt.Errorf("enqueue review: %w", err)
		}
		// Clear any rematch flag: the claim now waits on the reviewer,
		// not on another matching attempt
		return false, p.store.UpdateClaimStatus(ctx, claim.ID, model.StatusPending, model.FlagNone, "")

	default:
		err := p.store.UpdateClaimStatus(ctx, claim.ID, model.StatusPending,
			model.FlagNoMarketMatch, "no market above the review threshold")
		return false, err
	}
}

// linkMatch attaches a market to a claim and opens the simulated position
func (p *Pipeline) linkMatch(ctx context.Context, claim *model.Claim, best *model.MatchCandidate, candidates []model.MatchCandidate, matchType model.MatchType) error {
	alternatives := make([]model.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.MarketID != best.MarketID {
			alternatives = append(alternatives, c)
		}
	}

	m := &model.MarketMatch{
		ID:           uuid.New().String(),
		ClaimID:      claim.ID,
		MarketID:     best.MarketID,
		Question:     best.Question,
		Similarity:   best.Similarity,
		Type:         matchType,
		EntryPrice:   best.YesPrice,
		Alternatives: alternatives,
		CreatedAt:    p.now(),
	}
	if err := p.store.CreateMatch(ctx, m); err != nil {
		return fmt.Errorf("store match: %w", err)
	}

	pos := position.Open(claim, m, p.now())
	if err := p.store.CreatePosition(ctx, pos); err != nil {
		return fmt.Errorf("open position: %w", err)
	}

	if err := p.store.UpdateClaimStatus(ctx, claim.ID, model.StatusMatched, model.FlagNone, ""); err != nil {
		return fmt.Errorf("mark matched: %w", err)
	}
	claim.Status = model.StatusMatched
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
