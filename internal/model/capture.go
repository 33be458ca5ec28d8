package model

import "time"

// SourceType classifies where a capture came from
type SourceType string

const (
	SourceArticle    SourceType = "article"
	SourceTweet      SourceType = "tweet"
	SourceTranscript SourceType = "transcript"
)

// RawCapture is one ingested unit of source text. Immutable once stored;
// superseded, never edited. URLHash is the dedup key for re-fetched items.
type RawCapture struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"source_type"`
	SourceName string     `json:"source_name"`
	URL        string     `json:"url"`
	URLHash    string     `json:"url_hash"`
	Title      string     `json:"title,omitempty"`
	Body       string     `json:"body"`
	Author     string     `json:"author,omitempty"`

	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}
