package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/ledger"
	"github.com/ppiankov/trackrecord/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSubject(t *testing.T, s *Store, handle string) *model.TrackedSubject {
	t.Helper()
	sub := &model.TrackedSubject{
		ID:        uuid.New().String(),
		Name:      "Test Subject " + handle,
		Handle:    handle,
		Domains:   []string{"macro", "crypto"},
		CreatedAt: time.Now(),
	}
	if err := s.CreateSubject(context.Background(), sub); err != nil {
		t.Fatalf("create subject: %v", err)
	}
	return sub
}

func testClaim(t *testing.T, s *Store, l *ledger.Ledger, subjectID, text string) *model.Claim {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	c := &model.Claim{
		ID:         uuid.New().String(),
		SubjectID:  subjectID,
		Text:       text,
		Quote:      text,
		SourceURL:  "https://example.com/article",
		CapturedAt: now,
		Confidence: 0.8,
		Category:   model.CategoryCrypto,
		ResolveBy:  now.AddDate(0, 6, 0),
		Status:     model.StatusPending,
		CreatedAt:  now,
	}
	_, err := l.Append(ctx, c.Text, c.Quote, c.SourceURL, c.CapturedAt, func(e ledger.Entry) error {
		c.ContentHash = e.ContentHash
		c.ChainHash = e.ChainHash
		c.PrevChainHash = e.PrevChainHash
		c.ChainIndex = e.ChainIndex
		return s.CreateClaim(ctx, c)
	})
	if err != nil {
		t.Fatalf("append claim: %v", err)
	}
	return c
}

func TestSubjects(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sub := testSubject(t, s, "jim_cramer")

	got, err := s.GetSubjectByHandle(ctx, "jim_cramer")
	if err != nil {
		t.Fatalf("get by handle: %v", err)
	}
	if got == nil || got.ID != sub.ID {
		t.Fatalf("got %+v, want id %s", got, sub.ID)
	}
	if len(got.Domains) != 2 || got.Domains[0] != "macro" {
		t.Errorf("domains not round-tripped: %v", got.Domains)
	}

	// Absent handle is a nil result, not an error
	got, err = s.GetSubjectByHandle(ctx, "nobody")
	if err != nil || got != nil {
		t.Errorf("absent handle: got (%v, %v), want (nil, nil)", got, err)
	}

	// Handle is unique
	dup := &model.TrackedSubject{ID: uuid.New().String(), Name: "Other", Handle: "jim_cramer", CreatedAt: time.Now()}
	if err := s.CreateSubject(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate handle err = %v, want ErrDuplicate", err)
	}

	if err := s.SetSubjectVerified(ctx, sub.ID, true); err != nil {
		t.Fatalf("set verified: %v", err)
	}
	got, _ = s.GetSubject(ctx, sub.ID)
	if !got.Verified {
		t.Error("verified flag not persisted")
	}
}

func TestCaptureDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &model.RawCapture{
		ID:          uuid.New().String(),
		SourceType:  model.SourceArticle,
		SourceName:  "example-feed",
		URL:         "https://example.com/a",
		URLHash:     "abc123",
		Body:        "body text",
		PublishedAt: time.Now(),
		FetchedAt:   time.Now(),
	}
	if err := s.CreateCapture(ctx, c); err != nil {
		t.Fatalf("create capture: %v", err)
	}

	exists, err := s.CaptureExists(ctx, "abc123")
	if err != nil || !exists {
		t.Errorf("CaptureExists = (%v, %v), want (true, nil)", exists, err)
	}
	exists, _ = s.CaptureExists(ctx, "other")
	if exists {
		t.Error("CaptureExists reported a hash never stored")
	}

	c2 := *c
	c2.ID = uuid.New().String()
	if err := s.CreateCapture(ctx, &c2); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate url_hash err = %v, want ErrDuplicate", err)
	}
}

func TestClaims_DedupAndChain(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	ctx := context.Background()
	sub := testSubject(t, s, "sub1")

	c1 := testClaim(t, s, l, sub.ID, "Bitcoin will reach $100,000 by end of 2024")
	if c1.ChainIndex != 1 || c1.PrevChainHash != ledger.GenesisHash {
		t.Errorf("first claim chain fields wrong: %+v", c1)
	}

	c2 := testClaim(t, s, l, sub.ID, "The Fed will cut rates in March 2025")
	if c2.ChainIndex != 2 || c2.PrevChainHash != c1.ChainHash {
		t.Errorf("second claim not linked to first")
	}

	// Same content again violates the content_hash constraint
	dup := *c1
	dup.ID = uuid.New().String()
	dup.ChainIndex = 99
	if err := s.CreateClaim(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate content err = %v, want ErrDuplicate", err)
	}

	exists, err := s.ClaimExists(ctx, c1.ContentHash)
	if err != nil || !exists {
		t.Errorf("ClaimExists = (%v, %v), want (true, nil)", exists, err)
	}

	ordered, err := s.ClaimsInChainOrder(ctx)
	if err != nil {
		t.Fatalf("chain order: %v", err)
	}
	if len(ordered) != 2 || ordered[0].ChainIndex != 1 || ordered[1].ChainIndex != 2 {
		t.Fatalf("chain order wrong: %d claims", len(ordered))
	}

	report, err := l.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.IsValid || report.Checked != 2 {
		t.Errorf("verification failed on a clean chain: %+v", report)
	}
}

func TestClaims_ConcurrentAppend(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	sub := testSubject(t, s, "racer")

	texts := []string{
		"Claim A will happen", "Claim B will happen", "Claim C will happen",
		"Claim D will happen", "Claim E will happen", "Claim F will happen",
	}
	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			testClaim(t, s, l, sub.ID, text)
		}(text)
	}
	wg.Wait()

	report, err := l.VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.IsValid || report.Checked != len(texts) {
		t.Errorf("concurrent appends corrupted the chain: %+v", report)
	}
}

func TestClaims_ConcurrentSameContent(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	sub := testSubject(t, s, "same_racer")
	ctx := context.Background()

	// Identical subject, text, source, and capture time from every
	// goroutine: exactly one may land in the chain.
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	const text = "Oil will cross $100 by end of 2025"

	var wg sync.WaitGroup
	var stored, duplicates int32
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &model.Claim{
				ID:         uuid.New().String(),
				SubjectID:  sub.ID,
				Text:       text,
				Quote:      text,
				SourceURL:  "https://example.com/article",
				CapturedAt: now,
				Confidence: 0.8,
				Category:   model.CategoryMarkets,
				ResolveBy:  now.AddDate(0, 6, 0),
				Status:     model.StatusPending,
				CreatedAt:  now,
			}
			_, err := l.Append(ctx, c.Text, c.Quote, c.SourceURL, c.CapturedAt, func(e ledger.Entry) error {
				c.ContentHash = e.ContentHash
				c.ChainHash = e.ChainHash
				c.PrevChainHash = e.PrevChainHash
				c.ChainIndex = e.ChainIndex
				return s.CreateClaim(ctx, c)
			})
			switch {
			case err == nil:
				atomic.AddInt32(&stored, 1)
			case errors.Is(err, ErrDuplicate):
				atomic.AddInt32(&duplicates, 1)
			default:
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	if stored != 1 || duplicates != 5 {
		t.Errorf("stored %d, duplicates %d, want exactly one stored and five rejected", stored, duplicates)
	}

	claims, err := s.ClaimsInChainOrder(ctx)
	if err != nil {
		t.Fatalf("load chain: %v", err)
	}
	if len(claims) != 1 || claims[0].ChainIndex != 1 {
		t.Fatalf("chain has %d entries, want a single entry at index 1", len(claims))
	}

	report, err := l.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.IsValid || report.Checked != 1 {
		t.Errorf("chain after duplicate race: %+v", report)
	}
}

func TestClaims_StatusAndResolution(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	ctx := context.Background()
	sub := testSubject(t, s, "sub2")
	c := testClaim(t, s, l, sub.ID, "Gold will hit $3,000 by Q4 2025")

	if err := s.UpdateClaimStatus(ctx, c.ID, model.StatusMatched, model.FlagNone, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	matched, err := s.ListClaimsByStatus(ctx, model.StatusMatched)
	if err != nil || len(matched) != 1 {
		t.Fatalf("ListClaimsByStatus = (%d, %v), want 1 claim", len(matched), err)
	}

	when := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if err := s.RecordResolution(ctx, c.ID, model.OutcomeYes, when, "market settled yes"); err != nil {
		t.Fatalf("record resolution: %v", err)
	}
	got, _ := s.GetClaim(ctx, c.ID)
	if got.Status != model.StatusResolved || got.Outcome != model.OutcomeYes {
		t.Errorf("resolution not persisted: %+v", got)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(when) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, when)
	}

	// A resolved claim cannot be resolved again
	if err := s.RecordResolution(ctx, c.ID, model.OutcomeNo, when, "flip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second resolution err = %v, want ErrNotFound", err)
	}
	got, _ = s.GetClaim(ctx, c.ID)
	if got.Outcome != model.OutcomeYes {
		t.Error("outcome mutated by rejected second resolution")
	}
}

func TestClaims_QualityRoundTrip(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	ctx := context.Background()
	sub := testSubject(t, s, "sub3")

	c := testClaim(t, s, l, sub.ID, "Tesla will deliver 2 million vehicles in 2025")
	c.Quality = &model.QualityScore{
		Specificity: 20, Verifiability: 18, Boldness: 10, Relevance: 8, Stakes: 0,
		Total: 56, Passed: true, Tier: model.TierBronze,
	}
	// Re-store through a fresh claim to exercise marshaling
	c2 := *c
	c2.ID = uuid.New().String()
	c2.Text = c.Text + " v2"
	_, err := l.Append(ctx, c2.Text, c2.Quote, c2.SourceURL, c2.CapturedAt, func(e ledger.Entry) error {
		c2.ContentHash = e.ContentHash
		c2.ChainHash = e.ChainHash
		c2.PrevChainHash = e.PrevChainHash
		c2.ChainIndex = e.ChainIndex
		return s.CreateClaim(ctx, &c2)
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.GetClaim(ctx, c2.ID)
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if got.Quality == nil || got.Quality.Total != 56 || got.Quality.Tier != model.TierBronze {
		t.Errorf("quality not round-tripped: %+v", got.Quality)
	}
}

func TestMatchesAndReviewQueue(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	ctx := context.Background()
	sub := testSubject(t, s, "sub4")
	c := testClaim(t, s, l, sub.ID, "Bitcoin will reach $100,000 by end of 2024")

	m := &model.MarketMatch{
		ID:         uuid.New().String(),
		ClaimID:    c.ID,
		MarketID:   "mkt-1",
		Question:   "Will Bitcoin reach $100,000 in 2024?",
		Similarity: 0.83,
		Type:       model.MatchAuto,
		EntryPrice: 0.62,
		Alternatives: []model.MatchCandidate{
			{MarketID: "mkt-2", Question: "Will Bitcoin reach $90,000?", Similarity: 0.55},
		},
		CreatedAt: time.Now(),
	}
	if err := s.CreateMatch(ctx, m); err != nil {
		t.Fatalf("create match: %v", err)
	}

	// One match per claim
	second := *m
	second.ID = uuid.New().String()
	if err := s.CreateMatch(ctx, &second); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second match err = %v, want ErrDuplicate", err)
	}

	got, err := s.GetMatchByClaim(ctx, c.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.MarketID != "mkt-1" || len(got.Alternatives) != 1 {
		t.Errorf("match not round-tripped: %+v", got)
	}

	e := &model.ReviewQueueEntry{
		ID: uuid.New().String(), ClaimID: c.ID, MarketID: "mkt-3",
		Question: "Related question?", Similarity: 0.45,
		Status: model.ReviewPending, CreatedAt: time.Now(),
	}
	if err := s.EnqueueReview(ctx, e); err != nil {
		t.Fatalf("enqueue review: %v", err)
	}
	pending, err := s.ListReviewQueue(ctx, model.ReviewPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending queue = (%d, %v), want 1", len(pending), err)
	}

	if err := s.DecideReview(ctx, e.ID, model.ReviewApproved, "looks right", time.Now()); err != nil {
		t.Fatalf("decide review: %v", err)
	}
	decided, _ := s.GetReviewEntry(ctx, e.ID)
	if decided.Status != model.ReviewApproved || decided.DecidedAt == nil {
		t.Errorf("decision not persisted: %+v", decided)
	}

	// Already-decided entries cannot be decided again
	if err := s.DecideReview(ctx, e.ID, model.ReviewRejected, "", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second decision err = %v, want ErrNotFound", err)
	}
}

func TestPositionsAndMetrics(t *testing.T) {
	s := openTestStore(t)
	l := ledger.New(s)
	ctx := context.Background()
	sub := testSubject(t, s, "sub5")
	c := testClaim(t, s, l, sub.ID, "The S&P 500 will close above 6000 in 2025")

	closedAt := time.Now().UTC()
	p := &model.Position{
		ID: uuid.New().String(), ClaimID: c.ID, SubjectID: sub.ID, MarketID: "mkt-1",
		EntryPrice: 0.62, Size: 500, Shares: 500 / 0.62,
		Status: model.PositionOpen, OpenedAt: time.Now(),
	}
	if err := s.CreatePosition(ctx, p); err != nil {
		t.Fatalf("create position: %v", err)
	}

	open, err := s.ListOpenPositions(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("open positions = (%d, %v), want 1", len(open), err)
	}
	if open[0].ExitPrice != 0 || open[0].ClosedAt != nil {
		t.Errorf("open position carries close state: %+v", open[0])
	}

	p.Status = model.PositionClosed
	p.ExitPrice = 0.97
	p.Outcome = model.OutcomeYes
	p.RealizedPnL = p.Shares * (0.97 - 0.62)
	p.ClosedAt = &closedAt
	if err := s.ClosePosition(ctx, p); err != nil {
		t.Fatalf("close position: %v", err)
	}
	if err := s.ClosePosition(ctx, p); !errors.Is(err, ErrNotFound) {
		t.Errorf("second close err = %v, want ErrNotFound", err)
	}

	bysub, _ := s.ListPositionsBySubject(ctx, sub.ID)
	if len(bysub) != 1 || bysub[0].Status != model.PositionClosed || bysub[0].ExitPrice != 0.97 {
		t.Errorf("closed position not round-tripped: %+v", bysub)
	}

	m := &model.SubjectMetrics{
		SubjectID: sub.ID, TotalClaims: 1, ResolvedClaims: 1,
		Wins: 1, WinRate: 1.0, TotalPnL: p.RealizedPnL, Rank: 1,
		ComputedAt: time.Now(),
	}
	if err := s.UpsertMetrics(ctx, m); err != nil {
		t.Fatalf("upsert metrics: %v", err)
	}
	m.Wins = 2
	if err := s.UpsertMetrics(ctx, m); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := s.GetMetrics(ctx, sub.ID)
	if err != nil || got.Wins != 2 {
		t.Errorf("metrics upsert not idempotent: (%+v, %v)", got, err)
	}

	board, err := s.Leaderboard(ctx, 10)
	if err != nil || len(board) != 1 {
		t.Errorf("leaderboard = (%d, %v), want 1", len(board), err)
	}
}
