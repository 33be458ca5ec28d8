package score

import (
	"regexp"
	"strings"
)

// Keyword and pattern heuristics that derive the signal bundle from claim
// text. Deliberately simple: the scorer stays pure and the heuristics stay
// swappable without touching the rubric.

var (
	numberPattern  = regexp.MustCompile(`\$?\d[\d,]*(\.\d+)?%?`)
	yearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	quarterPattern = regexp.MustCompile(`(?i)\bQ[1-4]\b`)
)

// vagueWords disqualify a claim from being objectively checkable
var vagueWords = []string{
	"impact", "could", "might", "may ", "important", "possibly",
	"someday", "eventually", "probably", "likely transform", "revolutionize",
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december",
}

// binaryVerbs signal a clear will/won't condition
var binaryVerbs = []string{
	"will reach", "will exceed", "will hit", "will win", "will lose",
	"will pass", "will fail", "will be", "will drop", "will fall",
	"will rise", "will cross", "won't", "will not",
}

// dataSourceWords hint at a public series the outcome can be read from
var dataSourceWords = []string{
	"price", "bitcoin", "btc", "ethereum", "stock", "s&p", "nasdaq",
	"gdp", "inflation", "cpi", "unemployment", "rate", "election",
	"poll", "revenue", "sales", "market cap", "box office",
}

// contrarianWords hint at an against-consensus position
var contrarianWords = []string{
	"crash", "collapse", "contrary", "consensus is wrong", "everyone is wrong",
	"nobody expects", "against the odds", "upset",
}

var surpriseWords = []string{
	"crash", "collapse", "shock", "upset", "surprise", "unexpectedly",
}

var majorMarketWords = []string{
	"bitcoin", "btc", "ethereum", "stock", "s&p", "nasdaq", "dow",
	"fed", "rates", "oil", "gold", "dollar", "economy", "housing",
}

var broadImpactWords = []string{
	"election", "recession", "pandemic", "war", "unemployment",
	"inflation", "climate", "population", "americans", "global",
}

var highStakesWords = []string{
	"recession", "war", "collapse", "default", "crisis", "trillion",
	"bankrupt", "resign", "impeach",
}

var confidenceWords = []string{
	"certain", "definitely", "guarantee", "guaranteed", "no doubt",
	"100%", "absolutely",
}

// DeriveSignals derives the TR Index signal bundle from claim text and
// the stated numeric confidence
func DeriveSignals(text string, confidence float64) Signals {
	lower := strings.ToLower(text)

	hasNumber := numberPattern.MatchString(text)
	hasDate := yearPattern.MatchString(text) ||
		quarterPattern.MatchString(text) ||
		containsAny(lower, monthNames) ||
		strings.Contains(lower, "by end of") ||
		strings.Contains(lower, "within")
	binaryPhrasing := strings.Contains(lower, "will ") || strings.Contains(lower, "won't")
	binaryCondition := containsAny(lower, binaryVerbs)
	noVague := !containsAny(lower, vagueWords)

	sig := Signals{
		HasSpecificNumber:    hasNumber,
		HasSpecificDate:      hasDate,
		HasBinaryCondition:   binaryCondition,
		HasMeasurableOutcome: hasNumber || strings.Contains(lower, "#1") || strings.Contains(lower, "number one") || strings.Contains(lower, "win"),
		BinaryPhrasing:       binaryPhrasing,

		HasPublicDataSource:     containsAny(lower, dataSourceWords),
		ObjectivelyCheckable:    (hasNumber || hasDate) && binaryPhrasing && noVague,
		NoSubjectiveLanguage:    noVague,
		ClearResolutionCriteria: hasDate && binaryCondition,

		AgainstConsensus:     containsAny(lower, contrarianWords),
		MinorityOpinion:      containsAny(lower, contrarianWords) && confidence >= 0.6,
		UnexpectedOutcome:    containsAny(lower, surpriseWords),
		HighStatedConfidence: confidence >= 0.8 || containsAny(lower, confidenceWords),

		AffectsMajorMarket: containsAny(lower, majorMarketWords),
		AffectsManyPeople:  containsAny(lower, broadImpactWords),

		SignificantIfTrue: containsAny(lower, highStakesWords),
	}
	return sig
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
