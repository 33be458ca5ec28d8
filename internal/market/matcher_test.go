package market

import (
	"context"
	"math"
	"testing"

	"github.com/ppiankov/trackrecord/internal/model"
)

type fakeSource struct {
	markets  []model.Market
	searches []string
	err      error
}

func (f *fakeSource) Search(_ context.Context, term string) ([]model.Market, error) {
	f.searches = append(f.searches, term)
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

func (f *fakeSource) GetByID(_ context.Context, id string) (*model.Market, error) {
	for _, m := range f.markets {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, nil
}

func testMatcher(src Source) *Matcher {
	return NewMatcher(src, model.MatchingConfig{AutoThreshold: 0.6, ReviewThreshold: 0.3}, 5)
}

func TestClassify_Boundaries(t *testing.T) {
	m := testMatcher(&fakeSource{})

	tests := []struct {
		score float64
		want  Tier
	}{
		{0.95, TierAuto},
		{0.6, TierAuto}, // Exactly at the threshold goes to the higher tier
		{0.59999, TierSuggested},
		{0.3, TierSuggested},
		{0.29999, TierNone},
		{0.0, TierNone},
	}
	for _, tt := range tests {
		if got := m.Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	// Identical after stopword stripping
	s := Similarity("Bitcoin will reach $100,000 by end of 2024", "bitcoin reach 100,000 end 2024")
	if math.Abs(s-1.0) > 1e-9 {
		t.Errorf("identical content words: Similarity = %v, want 1.0", s)
	}

	// Disjoint vocabularies
	if s := Similarity("Bitcoin will reach $100,000", "Eagles win the Super Bowl"); s != 0 {
		t.Errorf("disjoint: Similarity = %v, want 0", s)
	}

	// Partial overlap lands strictly between
	s = Similarity(
		"Bitcoin will reach $100,000 by end of 2024",
		"Will Bitcoin hit $100,000 in 2024?",
	)
	if s <= 0 || s >= 1 {
		t.Errorf("partial overlap: Similarity = %v, want in (0, 1)", s)
	}

	if s := Similarity("", "anything"); s != 0 {
		t.Errorf("empty input: Similarity = %v, want 0", s)
	}

	// Symmetric
	a, b := "Fed cuts rates in March", "rates cut by the Fed"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("Similarity is not symmetric")
	}
}

func TestSearchTerms(t *testing.T) {
	terms := SearchTerms("Bitcoin will reach $100,000 by end of 2024", model.CategoryCrypto)
	if len(terms) == 0 {
		t.Fatal("no terms derived")
	}
	if terms[0] != "Bitcoin will reach $100,000 by end of 2024" {
		t.Errorf("first term should be the claim itself, got %q", terms[0])
	}
	if terms[len(terms)-1] != "crypto" {
		t.Errorf("category should be the last term, got %q", terms[len(terms)-1])
	}

	// Long claims get truncated at a word boundary
	long := "The Federal Reserve will cut interest rates three times before the end of next year according to every analyst"
	terms = SearchTerms(long, model.CategoryEconomy)
	if len(terms[0]) > maxTermLen {
		t.Errorf("first term too long: %d chars", len(terms[0]))
	}

	// No duplicates
	seen := make(map[string]bool)
	for _, term := range terms {
		if seen[term] {
			t.Errorf("duplicate term %q", term)
		}
		seen[term] = true
	}

	// The catch-all category contributes nothing
	for _, term := range SearchTerms("Bitcoin will reach $100,000", model.CategoryOther) {
		if term == "other" {
			t.Error(`category "other" must not become a search term`)
		}
	}
}

func TestFindCandidates_RanksAndTruncates(t *testing.T) {
	src := &fakeSource{markets: []model.Market{
		{ID: "m1", Question: "Will Bitcoin reach $100,000 in 2024?", OutcomePrices: map[string]float64{"Yes": 0.62}, Active: true},
		{ID: "m2", Question: "Will Ethereum flip Bitcoin?", OutcomePrices: map[string]float64{"Yes": 0.05}, Active: true},
		{ID: "m3", Question: "Super Bowl winner 2025", Active: true},
	}}
	m := testMatcher(src)

	got, err := m.FindCandidates(context.Background(), "Bitcoin will reach $100,000 by end of 2024", model.CategoryCrypto)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	if got[0].MarketID != "m1" {
		t.Errorf("best candidate = %s, want m1", got[0].MarketID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("candidates not sorted at index %d", i)
		}
	}
	if got[0].YesPrice != 0.62 {
		t.Errorf("YesPrice = %v, want 0.62", got[0].YesPrice)
	}

	// Duplicate market IDs across search terms collapse to one candidate
	ids := make(map[string]bool)
	for _, c := range got {
		if ids[c.MarketID] {
			t.Errorf("duplicate candidate %s", c.MarketID)
		}
		ids[c.MarketID] = true
	}
}

func TestSelectBest(t *testing.T) {
	m := testMatcher(&fakeSource{})

	if best, tier := m.SelectBest(nil); best != nil || tier != TierNone {
		t.Errorf("empty list: got (%v, %v), want (nil, none)", best, tier)
	}

	best, tier := m.SelectBest([]model.MatchCandidate{
		{MarketID: "m1", Similarity: 0.75},
		{MarketID: "m2", Similarity: 0.4},
	})
	if tier != TierAuto || best == nil || best.MarketID != "m1" {
		t.Errorf("got (%v, %v), want (m1, auto)", best, tier)
	}

	best, tier = m.SelectBest([]model.MatchCandidate{{MarketID: "m1", Similarity: 0.45}})
	if tier != TierSuggested || best == nil {
		t.Errorf("got (%v, %v), want (m1, suggested)", best, tier)
	}

	best, tier = m.SelectBest([]model.MatchCandidate{{MarketID: "m1", Similarity: 0.1}})
	if best != nil || tier != TierNone {
		t.Errorf("weak match: got (%v, %v), want (nil, none)", best, tier)
	}
}

func TestParseOutcomePrices(t *testing.T) {
	got := parseOutcomePrices(`["Yes","No"]`, `["0.62","0.38"]`)
	if got["Yes"] != 0.62 || got["No"] != 0.38 {
		t.Errorf("parseOutcomePrices = %v", got)
	}

	if got := parseOutcomePrices("not json", `["0.5"]`); len(got) != 0 {
		t.Errorf("malformed outcomes: got %v, want empty", got)
	}
	if got := parseOutcomePrices(`["Yes","No"]`, `["0.7"]`); len(got) != 1 {
		t.Errorf("short prices: got %v, want 1 entry", got)
	}
}
