package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/model"
)

// Provider is an extraction backend: it turns raw source text into zero
// or more structured candidate claims. Implementations never return an
// error into the pipeline; failures surface as a typed extract.Result.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Extract runs the claim extraction contract against one source text
	Extract(ctx context.Context, req extract.Request) extract.Result
}

// Config holds extraction backend configuration
type Config struct {
	// Provider name: "openai", "anthropic", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "",
		Model:     "",
		Timeout:   60,
		MaxTokens: 2000,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		MaxTokens: c.MaxTokens,
	}
}

// systemPrompt fixes the extraction contract for every backend
const systemPrompt = `You extract verifiable predictions from text. You respond with a JSON array only, no prose.`

// BuildPrompt constructs the extraction prompt enforcing the strict
// accept/reject rules of the contract.
func BuildPrompt(req extract.Request) string {
	var b strings.Builder

	b.WriteString(`Extract every prediction made by a named person in the text below.

STRICT RULES:
1. REJECT claims using vague or unmeasurable language ("impact", "could", "might", "important").
2. REJECT claims without a verifiable yes/no outcome.
3. REJECT claims without an explicit or assignable deadline.
4. ACCEPT only claims with a concrete target: a number, a date, a ranking, or a named outcome.
5. Quote the speaker verbatim in "quote".

Respond with a JSON array (possibly empty). Each element:
{
  "subject_name": "who made the prediction",
  "subject_title": "their title or affiliation, if stated",
  "claim_text": "the prediction, normalized",
  "confidence": "certain|high|medium|low|speculative",
  "timeframe": "ISO date or relative expression like '3 months' or 'Q4 2025'",
  "quote": "verbatim quote",
  "conditionality": "any stated condition, or empty",
  "category": "` + categoryList() + `"
}

`)
	fmt.Fprintf(&b, "Source type: %s\n", req.SourceType)
	if req.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", req.Author)
	}
	if !req.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", req.PublishedAt.Format("2006-01-02"))
	}
	b.WriteString("\nText:\n")
	b.WriteString(req.Text)

	return b.String()
}

func categoryList() string {
	parts := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, "|")
}

// ParseCandidates decodes a backend completion into candidates.
// Malformed output is treated as zero candidates with a typed reason,
// never as a pipeline error.
func ParseCandidates(raw string) extract.Result {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return extract.Result{Reason: extract.FailureMalformed, Detail: "empty completion"}
	}

	var candidates []extract.Candidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		// Some models wrap the array in an object
		var wrapped struct {
			Predictions []extract.Candidate `json:"predictions"`
		}
		if err2 := json.Unmarshal([]byte(cleaned), &wrapped); err2 == nil && wrapped.Predictions != nil {
			return extract.Result{Candidates: wrapped.Predictions}
		}
		return extract.Result{Reason: extract.FailureMalformed, Detail: err.Error()}
	}

	return extract.Result{Candidates: candidates}
}

// stripFences removes markdown code fences around a JSON payload
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
