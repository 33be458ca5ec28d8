// Package pipeline orchestrates ingestion: fetch sources, extract
// predictions, resolve subjects, score, append to the ledger, and match
// against markets. One item's failure never aborts a cycle.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/ledger"
	"github.com/ppiankov/trackrecord/internal/market"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/resolve"
	"github.com/ppiankov/trackrecord/internal/score"
	"github.com/ppiankov/trackrecord/internal/source"
)

// Store is the persistence surface the pipeline writes through
type Store interface {
	CaptureExists(ctx context.Context, urlHash string) (bool, error)
	CreateCapture(ctx context.Context, c *model.RawCapture) error
	ClaimExists(ctx context.Context, contentHash string) (bool, error)
	CreateClaim(ctx context.Context, c *model.Claim) error
	UpdateClaimStatus(ctx context.Context, id string, status model.ClaimStatus, flag model.FlagReason, flagNote string) error
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	ListClaimsByStatus(ctx context.Context, status model.ClaimStatus) ([]model.Claim, error)
	CreateMatch(ctx context.Context, m *model.MarketMatch) error
	EnqueueReview(ctx context.Context, e *model.ReviewQueueEntry) error
	GetReviewEntry(ctx context.Context, id string) (*model.ReviewQueueEntry, error)
	DecideReview(ctx context.Context, id string, status model.ReviewStatus, notes string, decidedAt time.Time) error
	CreatePosition(ctx context.Context, p *model.Position) error
}

// Feed is one ingestible source of captures
type Feed interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawCapture, error)
}

// ArticleReader retrieves the full text behind a capture's URL
type ArticleReader interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Pipeline wires the ingestion stages together
type Pipeline struct {
	store     Store
	feeds     []Feed
	articles  ArticleReader
	extractor extract.Extractor
	resolver  *resolve.Resolver
	scorer    *score.Scorer
	ledger    *ledger.Ledger
	matcher   *market.Matcher
	markets   market.Source
	cfg       *model.Config
	log       *zap.Logger
	now       func() time.Time
}

// Options carries the pipeline's collaborators
type Options struct {
	Store     Store
	Feeds     []Feed
	Articles  ArticleReader
	Extractor extract.Extractor
	Resolver  *resolve.Resolver
	Scorer    *score.Scorer
	Ledger    *ledger.Ledger
	Matcher   *market.Matcher
	Markets   market.Source
	Config    *model.Config
	Logger    *zap.Logger
}

// New assembles a pipeline
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Pipeline{
		store:     opts.Store,
		feeds:     opts.Feeds,
		articles:  opts.Articles,
		extractor: opts.Extractor,
		resolver:  opts.Resolver,
		scorer:    opts.Scorer,
		ledger:    opts.Ledger,
		matcher:   opts.Matcher,
		markets:   opts.Markets,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// minBodyLength is the point below which a feed entry's own body is
// considered a teaser and the full article is fetched instead
const minBodyLength = 280

// fullBody returns the best available text for a capture, fetching the
// article page when the feed body is too thin to extract from
func (p *Pipeline) fullBody(ctx context.Context, c *model.RawCapture) string {
	clean := source.ExtractText(c.Body)
	if len(clean) >= minBodyLength || p.articles == nil {
		return clean
	}
	text, err := p.articles.FetchText(ctx, c.URL)
	if err != nil {
		p.log.Debug("article fetch failed, using feed body",
			zap.String("url", c.URL), zap.Error(err))
		return clean
	}
	return text
}
