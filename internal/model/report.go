package model

// maxSummaryErrors caps the error strings carried by a cycle summary so a
// pathological run cannot balloon logs or API responses.
const maxSummaryErrors = 20

// IngestionSummary reports one ingestion cycle. Counts are always present;
// Errors is a capped list of per-item failures that did not abort the run.
type IngestionSummary struct {
	Fetched     int      `json:"fetched"`
	Extracted   int      `json:"extracted"`
	Stored      int      `json:"stored"`
	Matched     int      `json:"matched"`
	Duplicates  int      `json:"duplicates"`
	Rejected    int      `json:"rejected"` // Failed the quality gate (stored flagged)
	NewSubjects int      `json:"new_subjects"`
	Errors      []string `json:"errors,omitempty"`
	TimedOut    bool     `json:"timed_out,omitempty"`
}

// AddError appends an error string, dropping it once the cap is reached
func (s *IngestionSummary) AddError(msg string) {
	if len(s.Errors) < maxSummaryErrors {
		s.Errors = append(s.Errors, msg)
	}
}

// ResolutionSummary reports one resolution cycle
type ResolutionSummary struct {
	Checked          int      `json:"checked"`
	MarketResolved   int      `json:"market_resolved"`
	TimeframeFlagged int      `json:"timeframe_flagged"`
	Inconclusive     int      `json:"inconclusive"`
	Errors           []string `json:"errors,omitempty"`
	TimedOut         bool     `json:"timed_out,omitempty"`
}

// AddError appends an error string, dropping it once the cap is reached
func (s *ResolutionSummary) AddError(msg string) {
	if len(s.Errors) < maxSummaryErrors {
		s.Errors = append(s.Errors, msg)
	}
}

// ActivationSummary reports a backfill pass for a newly tracked subject
type ActivationSummary struct {
	ArticlesSearched int      `json:"articles_searched"`
	ClaimsExtracted  int      `json:"claims_extracted"`
	ClaimsStored     int      `json:"claims_stored"`
	Errors           []string `json:"errors,omitempty"`
}

// AddError appends an error string, dropping it once the cap is reached
func (s *ActivationSummary) AddError(msg string) {
	if len(s.Errors) < maxSummaryErrors {
		s.Errors = append(s.Errors, msg)
	}
}

// ChainVerification reports an integrity check over stored claims
type ChainVerification struct {
	Checked      int    `json:"checked"`
	IsValid      bool   `json:"is_valid"`
	ContentValid bool   `json:"content_valid"`
	ChainValid   bool   `json:"chain_valid"`
	FirstBadIdx  int64  `json:"first_bad_index,omitempty"` // Chain index of the first corrupt entry
	Detail       string `json:"detail,omitempty"`
}
