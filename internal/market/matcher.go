package market

import (
	"context"
	"sort"
	"strings"

	"github.com/ppiankov/trackrecord/internal/model"
)

// Tier classifies a candidate match by similarity strength
type Tier string

const (
	TierAuto      Tier = "auto"      // Link without human review
	TierSuggested Tier = "suggested" // Queue for human review
	TierNone      Tier = "none"      // No usable match
)

// Matcher finds market candidates for a claim by lexical overlap.
// Purely word-based: no semantic model, so phrasing gaps between a
// claim and a market question lower the score.
type Matcher struct {
	source          Source
	topK            int
	autoThreshold   float64
	reviewThreshold float64
}

// NewMatcher creates a matcher over the given market source
func NewMatcher(source Source, cfg model.MatchingConfig, topK int) *Matcher {
	if topK <= 0 {
		topK = 5
	}
	return &Matcher{
		source:          source,
		topK:            topK,
		autoThreshold:   cfg.AutoThreshold,
		reviewThreshold: cfg.ReviewThreshold,
	}
}

// FindCandidates searches the market source with several derived terms
// and returns the top candidates by similarity, best first. The claim's
// category widens the search; it does not affect scoring.
func (m *Matcher) FindCandidates(ctx context.Context, claimText string, category model.Category) ([]model.MatchCandidate, error) {
	seen := make(map[string]model.Market)
	var firstErr error

	for _, term := range SearchTerms(claimText, category) {
		markets, err := m.source.Search(ctx, term)
		if err != nil {
			// A failed term does not sink the others, but remember
			// the error in case every term fails.
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, mk := range markets {
			if _, ok := seen[mk.ID]; !ok {
				seen[mk.ID] = mk
			}
		}
	}
	if len(seen) == 0 && firstErr != nil {
		return nil, firstErr
	}

	candidates := make([]model.MatchCandidate, 0, len(seen))
	for _, mk := range seen {
		sim := Similarity(claimText, mk.Question)
		candidates = append(candidates, model.MatchCandidate{
			MarketID:   mk.ID,
			Question:   mk.Question,
			Similarity: sim,
			YesPrice:   mk.YesPrice(),
			Active:     mk.Active,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > m.topK {
		candidates = candidates[:m.topK]
	}
	return candidates, nil
}

// Classify maps a similarity score to a tier. A score exactly at a
// threshold goes to the higher tier.
func (m *Matcher) Classify(score float64) Tier {
	switch {
	case score >= m.autoThreshold:
		return TierAuto
	case score >= m.reviewThreshold:
		return TierSuggested
	default:
		return TierNone
	}
}

// SelectBest picks the strongest candidate and its tier. Returns a nil
// candidate with TierNone when the list is empty or the best score
// falls below the review threshold.
func (m *Matcher) SelectBest(candidates []model.MatchCandidate) (*model.MatchCandidate, Tier) {
	if len(candidates) == 0 {
		return nil, TierNone
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Similarity > best.Similarity {
			best = c
		}
	}
	tier := m.Classify(best.Similarity)
	if tier == TierNone {
		return nil, TierNone
	}
	return &best, tier
}

const maxTermLen = 80

// SearchTerms derives search queries from a claim: the truncated claim
// itself, a key-phrase of its distinctive words, the individual long
// words, and the claim's category. Order matters; duplicates are
// dropped.
func SearchTerms(claimText string, category model.Category) []string {
	var terms []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		for _, existing := range terms {
			if existing == t {
				return
			}
		}
		terms = append(terms, t)
	}

	full := strings.TrimSpace(claimText)
	if len(full) > maxTermLen {
		full = full[:maxTermLen]
		if idx := strings.LastIndex(full, " "); idx > 0 {
			full = full[:idx]
		}
	}
	add(full)

	keywords := contentWords(claimText)
	if len(keywords) > 1 {
		phrase := keywords
		if len(phrase) > 4 {
			phrase = phrase[:4]
		}
		add(strings.Join(phrase, " "))
	}
	for _, w := range keywords {
		if len(w) > 5 {
			add(w)
		}
	}
	// The catch-all category says nothing a search could use
	if category != "" && category != model.CategoryOther {
		add(string(category))
	}
	return terms
}

// Similarity is the Jaccard index over stopword-stripped word sets,
// in [0, 1].
func Similarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true,
	"on": true, "at": true, "to": true, "by": true, "is": true,
	"are": true, "be": true, "will": true, "and": true, "or": true,
	"for": true, "with": true, "it": true, "this": true, "that": true,
	"its": true, "as": true, "was": true,
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range tokenize(s) {
		if !stopwords[w] {
			set[w] = true
		}
	}
	return set
}

// contentWords returns the non-stopword tokens in order of appearance,
// without duplicates
func contentWords(s string) []string {
	var words []string
	seen := make(map[string]bool)
	for _, w := range tokenize(s) {
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
