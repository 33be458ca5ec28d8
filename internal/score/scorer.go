package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/trackrecord/internal/model"
)

// DefaultMinTotal is the public-feed acceptance threshold on the 0-100 index
const DefaultMinTotal = 25

// Signals is the boolean bundle about a candidate claim that feeds the
// TR Index. Deriving the bundle from text is the job of DeriveSignals;
// the scorer itself is a pure function over this struct.
type Signals struct {
	// Specificity
	HasSpecificNumber    bool
	HasSpecificDate      bool
	HasBinaryCondition   bool
	HasMeasurableOutcome bool
	BinaryPhrasing       bool // Phrased as "will"/"won't"

	// Verifiability
	HasPublicDataSource     bool
	ObjectivelyCheckable    bool
	NoSubjectiveLanguage    bool
	ClearResolutionCriteria bool

	// Boldness
	AgainstConsensus     bool
	MinorityOpinion      bool
	UnexpectedOutcome    bool
	HighStatedConfidence bool

	// Relevance
	AffectsMajorMarket bool
	AffectsManyPeople  bool

	// Stakes
	SignificantIfTrue bool
}

// Scorer computes the TR Index from a signal bundle
type Scorer struct {
	minTotal int
}

// NewScorer creates a scorer with the given acceptance threshold; zero or
// negative falls back to the default.
func NewScorer(minTotal int) *Scorer {
	if minTotal <= 0 {
		minTotal = DefaultMinTotal
	}
	return &Scorer{minTotal: minTotal}
}

// Score computes the five sub-scores and the weighted 0-100 total.
// Deterministic and side-effect free: the same bundle always yields the
// same result. Every signal carries a positive weight, so setting any
// signal true can never lower the total.
func (s *Scorer) Score(sig Signals) model.QualityScore {
	q := model.QualityScore{
		Specificity:   specificity(sig),
		Verifiability: verifiability(sig),
		Boldness:      boldness(sig),
		Relevance:     relevance(sig),
		Stakes:        stakes(sig),
	}
	q.Total = q.Specificity + q.Verifiability + q.Boldness + q.Relevance + q.Stakes
	q.Passed = q.Total >= s.minTotal
	q.Tier = tierFor(q.Total)
	if !q.Passed {
		q.RejectionReason = rejectionReason(sig, q.Total, s.minTotal)
	}
	return q
}

// specificity scores concreteness (0-25): number 6, date 6, binary
// condition 5, measurable outcome 4, will/won't phrasing 4
func specificity(sig Signals) int {
	n := 0
	if sig.HasSpecificNumber {
		n += 6
	}
	if sig.HasSpecificDate {
		n += 6
	}
	if sig.HasBinaryCondition {
		n += 5
	}
	if sig.HasMeasurableOutcome {
		n += 4
	}
	if sig.BinaryPhrasing {
		n += 4
	}
	return n
}

// verifiability scores checkability (0-25): public data source 6,
// objectively checkable 7, no subjective language 5, clear criteria 7
func verifiability(sig Signals) int {
	n := 0
	if sig.HasPublicDataSource {
		n += 6
	}
	if sig.ObjectivelyCheckable {
		n += 7
	}
	if sig.NoSubjectiveLanguage {
		n += 5
	}
	if sig.ClearResolutionCriteria {
		n += 7
	}
	return n
}

// boldness scores contrarian risk (0-20): against consensus 6, minority
// opinion 5, unexpected outcome 5, high stated confidence 4
func boldness(sig Signals) int {
	n := 0
	if sig.AgainstConsensus {
		n += 6
	}
	if sig.MinorityOpinion {
		n += 5
	}
	if sig.UnexpectedOutcome {
		n += 5
	}
	if sig.HighStatedConfidence {
		n += 4
	}
	return n
}

// relevance scores reach (0-15): major market 8, many people 7
func relevance(sig Signals) int {
	n := 0
	if sig.AffectsMajorMarket {
		n += 8
	}
	if sig.AffectsManyPeople {
		n += 7
	}
	return n
}

// stakes scores consequence (0-15)
func stakes(sig Signals) int {
	if sig.SignificantIfTrue {
		return 15
	}
	return 0
}

// tierFor bands the total at the fixed 40/60/80 cutoffs
func tierFor(total int) model.QualityTier {
	switch {
	case total >= 80:
		return model.TierGold
	case total >= 60:
		return model.TierSilver
	case total >= 40:
		return model.TierBronze
	default:
		return model.TierNone
	}
}

// rejectionReason names the missing essentials in reviewer-readable form
func rejectionReason(sig Signals, total, minTotal int) string {
	var missing []string
	if !sig.HasSpecificNumber && !sig.HasSpecificDate {
		missing = append(missing, "no specific number or date")
	}
	if !sig.HasBinaryCondition && !sig.BinaryPhrasing {
		missing = append(missing, "no clear binary outcome")
	}
	if !sig.ObjectivelyCheckable {
		missing = append(missing, "not objectively checkable")
	}
	if !sig.NoSubjectiveLanguage {
		missing = append(missing, "uses vague or subjective language")
	}
	reason := fmt.Sprintf("scored %d, below acceptance threshold %d", total, minTotal)
	if len(missing) > 0 {
		reason += ": " + strings.Join(missing, "; ")
	}
	return reason
}
