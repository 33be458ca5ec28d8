package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/source"
	"github.com/ppiankov/trackrecord/internal/store"
)

// ActivateSubject begins tracking a named person and backfills their
// record from the given article URLs. Matches made here are tagged
// historical so paper returns are not conflated with live tracking.
func (p *Pipeline) ActivateSubject(ctx context.Context, name, title string, urls []string) (model.ActivationSummary, error) {
	var summary model.ActivationSummary

	subject, created, err := p.resolver.ResolveOrCreate(ctx, name, title, "", model.CategoryOther)
	if err != nil {
		return summary, fmt.Errorf("create subject: %w", err)
	}
	if created {
		p.log.Info("tracking new subject",
			zap.String("name", subject.Name),
			zap.String("handle", subject.Handle),
		)
	}

	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		if err := p.backfillArticle(ctx, subject, url, &summary); err != nil {
			summary.AddError(fmt.Sprintf("%s: %v", url, err))
		}
	}
	return summary, nil
}

func (p *Pipeline) backfillArticle(ctx context.Context, subject *model.TrackedSubject, url string, summary *model.ActivationSummary) error {
	text, err := p.articles.FetchText(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	summary.ArticlesSearched++

	capture := &model.RawCapture{
		ID:          uuid.New().String(),
		SourceType:  model.SourceArticle,
		SourceName:  "backfill",
		URL:         url,
		URLHash:     source.URLHash(url),
		Title:       subject.Name + " backfill",
		Body:        text,
		Author:      subject.Name,
		PublishedAt: time.Now().UTC(),
		FetchedAt:   time.Now().UTC(),
	}
	if err := p.store.CreateCapture(ctx, capture); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("store capture: %w", err)
	}

	result := p.extractor.Extract(ctx, extract.Request{
		Text:        text,
		Author:      subject.Name,
		PublishedAt: capture.PublishedAt,
		SourceType:  model.SourceArticle,
	})
	if result.Failed() {
		return fmt.Errorf("extraction %s: %s", result.Reason, result.Detail)
	}

	kept, _ := extract.Filter(result.Candidates)
	var ingest model.IngestionSummary
	for _, cand := range kept {
		// Backfill is scoped to the activated subject; attributions to
		// anyone else are left for the regular cycle to find.
		if p.resolver.Resolve(cand.SubjectName) == nil && cand.SubjectName != subject.Name {
			continue
		}
		summary.ClaimsExtracted++
		if err := p.processCandidate(ctx, capture, cand, model.MatchHistorical, &ingest); err != nil {
			summary.AddError(fmt.Sprintf("claim %q: %v", truncate(cand.ClaimText, 60), err))
		}
	}
	summary.ClaimsStored += ingest.Stored
	return nil
}
