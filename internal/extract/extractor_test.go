package extract

import (
	"testing"
	"time"
)

func TestConfidenceValue_TotalMapping(t *testing.T) {
	cases := []struct {
		label string
		value float64
	}{
		{"certain", 0.95},
		{"high", 0.80},
		{"medium", 0.60},
		{"low", 0.40},
		{"speculative", 0.25},
		{"", 0.60},           // Unrecognized falls back to medium
		{"very_high", 0.60},  // Unrecognized falls back to medium
		{"CERTAIN", 0.60},    // Labels are case-sensitive lowercase
	}
	for _, c := range cases {
		if got := ConfidenceValue(c.label); got != c.value {
			t.Errorf("ConfidenceValue(%q) = %v, want %v", c.label, got, c.value)
		}
	}
}

func TestParseTimeframe(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01", time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC)},
		{"2025-03-01T00:00:00Z", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"Q4 2025", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"Q1 2026", time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)},
		{"2026", time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"end of 2024", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"by end of 2024", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"3 months", now.AddDate(0, 3, 0)},
		{"in 2 years", now.AddDate(2, 0, 0)},
		{"within 6 weeks", now.AddDate(0, 0, 42)},
		{"10 days", now.AddDate(0, 0, 10)},
		{"soon", now.Add(DefaultTimeframe)},       // Unrecognized -> default
		{"", now.Add(DefaultTimeframe)},           // Empty -> default
	}
	for _, c := range cases {
		if got := ParseTimeframe(c.in, now); !got.Equal(c.want) {
			t.Errorf("ParseTimeframe(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseTimeframe_Deterministic(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	first := ParseTimeframe("3 months", now)
	for i := 0; i < 3; i++ {
		if got := ParseTimeframe("3 months", now); !got.Equal(first) {
			t.Fatal("Expected deterministic parsing for fixed now")
		}
	}
}

func TestCheckCandidate(t *testing.T) {
	good := Candidate{
		SubjectName: "Jane Analyst",
		ClaimText:   "Bitcoin will reach $100,000 by end of 2024",
		Confidence:  "high",
		Timeframe:   "2024",
		Quote:       "I think bitcoin hits 100k this year",
		Category:    "crypto",
	}
	if reason := CheckCandidate(good); reason != RejectNone {
		t.Errorf("Expected acceptance, got %s", reason)
	}

	cases := []struct {
		name   string
		mutate func(Candidate) Candidate
		want   RejectReason
	}{
		{"vague language", func(c Candidate) Candidate {
			c.ClaimText = "AI will have a huge impact on jobs"
			return c
		}, RejectVague},
		{"no binary outcome", func(c Candidate) Candidate {
			c.ClaimText = "Bitcoin is an interesting asset for 2024"
			return c
		}, RejectNoBinary},
		{"no concrete target", func(c Candidate) Candidate {
			c.ClaimText = "Things will change for the dollar"
			return c
		}, RejectNoTarget},
		{"empty claim", func(c Candidate) Candidate {
			c.ClaimText = "   "
			return c
		}, RejectEmpty},
		{"missing subject", func(c Candidate) Candidate {
			c.SubjectName = ""
			return c
		}, RejectNoSubject},
	}
	for _, tc := range cases {
		if got := CheckCandidate(tc.mutate(good)); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestFilter_CountsRejects(t *testing.T) {
	candidates := []Candidate{
		{SubjectName: "A", ClaimText: "The S&P 500 will exceed 6000 in 2025"},
		{SubjectName: "B", ClaimText: "Technology could impact everything"},
		{SubjectName: "C", ClaimText: "Team X will win the championship"},
	}

	kept, rejects := Filter(candidates)
	if len(kept) != 2 {
		t.Errorf("Expected 2 survivors, got %d", len(kept))
	}
	if rejects[RejectVague] != 1 {
		t.Errorf("Expected 1 vague reject, got %d", rejects[RejectVague])
	}
}
