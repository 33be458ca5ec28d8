package extract

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// Candidate is one structured prediction proposed by an extraction
// backend, before entity resolution and quality gating.
type Candidate struct {
	SubjectName    string `json:"subject_name"`
	SubjectTitle   string `json:"subject_title,omitempty"` // Title/affiliation hint
	ClaimText      string `json:"claim_text"`
	Confidence     string `json:"confidence"` // certain/high/medium/low/speculative
	Timeframe      string `json:"timeframe"`  // ISO date or relative expression
	Quote          string `json:"quote"`      // Verbatim from the source
	Conditionality string `json:"conditionality,omitempty"`
	Category       string `json:"category"`
}

// Request carries one source text to the extraction backend
type Request struct {
	Text        string
	Author      string
	PublishedAt time.Time
	SourceType  model.SourceType
}

// FailureReason classifies why extraction produced nothing usable
type FailureReason string

const (
	FailureNone      FailureReason = ""
	FailureBackend   FailureReason = "backend_error"    // Transient collaborator failure
	FailureMalformed FailureReason = "malformed_output" // Output did not match the schema
	FailureDisabled  FailureReason = "disabled"         // No backend configured
)

// Result is the explicit outcome of one extraction call. Failures degrade
// to zero candidates with a typed reason; they never propagate as errors
// into the wider pipeline.
type Result struct {
	Candidates []Candidate
	Reason     FailureReason
	Detail     string
}

// Failed reports whether the backend produced no usable output
func (r Result) Failed() bool {
	return r.Reason != FailureNone
}

// Extractor is the contract an extraction backend must satisfy. Any
// text-understanding implementation qualifies as long as its output
// conforms to the Candidate schema.
type Extractor interface {
	Extract(ctx context.Context, req Request) Result
}

// Disabled is the extractor used when no backend is configured. Captures
// are still stored and deduplicated, so enabling a backend later picks up
// only new material.
type Disabled struct{}

func (Disabled) Extract(context.Context, Request) Result {
	return Result{Reason: FailureDisabled, Detail: "no extraction backend configured"}
}

// vagueWords disqualify a candidate outright: claims built on them have
// no verifiable binary outcome.
var vagueWords = []string{
	"impact", "could", "might", "important", "may affect", "matters",
	"possibly", "someday", "transform", "revolutionize",
}

// RejectReason explains why the strict filter dropped a candidate
type RejectReason string

const (
	RejectNone      RejectReason = ""
	RejectVague     RejectReason = "vague_language"
	RejectNoBinary  RejectReason = "no_binary_outcome"
	RejectNoTarget  RejectReason = "no_concrete_target"
	RejectEmpty     RejectReason = "empty_claim"
	RejectNoSubject RejectReason = "no_subject"
)

// CheckCandidate applies the strict accept/reject linguistic rules:
// accept only claims with a clear yes/no resolution, a concrete target
// (number, date, ranking, named outcome) and an assignable deadline.
func CheckCandidate(c Candidate) RejectReason {
	text := strings.TrimSpace(c.ClaimText)
	if text == "" {
		return RejectEmpty
	}
	if strings.TrimSpace(c.SubjectName) == "" {
		return RejectNoSubject
	}

	lower := strings.ToLower(text)
	for _, w := range vagueWords {
		if strings.Contains(lower, w) {
			return RejectVague
		}
	}

	if !strings.Contains(lower, "will") && !strings.Contains(lower, "won't") {
		return RejectNoBinary
	}

	if !hasConcreteTarget(lower) {
		return RejectNoTarget
	}

	return RejectNone
}

// hasConcreteTarget looks for a number, date, ranking, or named outcome
func hasConcreteTarget(lower string) bool {
	for _, r := range lower {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	for _, w := range []string{"win", "lose", "first", "last", "highest", "lowest", "record", "resign", "pass", "fail", "default", "approve"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Filter applies CheckCandidate to a batch, returning the survivors and
// a count of rejects per reason.
func Filter(candidates []Candidate) ([]Candidate, map[RejectReason]int) {
	var kept []Candidate
	rejects := make(map[RejectReason]int)
	for _, c := range candidates {
		if reason := CheckCandidate(c); reason != RejectNone {
			rejects[reason]++
			continue
		}
		kept = append(kept, c)
	}
	return kept, rejects
}
