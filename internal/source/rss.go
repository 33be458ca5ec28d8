// Package source ingests raw text from the outside world: RSS/Atom
// feeds and the article pages they link to. Everything downstream works
// on the RawCapture it produces.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/trackrecord/internal/model"
)

// FeedSource fetches items from one RSS/Atom feed
type FeedSource struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// NewFeedSource creates a feed source
func NewFeedSource(name, url string) *FeedSource {
	return &FeedSource{
		name:   name,
		url:    url,
		parser: gofeed.NewParser(),
	}
}

// Name returns the configured feed name
func (s *FeedSource) Name() string {
	return s.name
}

// Fetch pulls the feed and converts entries to captures. Entries
// without a link are skipped: the URL is the dedup identity.
func (s *FeedSource) Fetch(ctx context.Context) ([]model.RawCapture, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", s.url, err)
	}

	now := time.Now().UTC()
	captures := make([]model.RawCapture, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		body := entry.Content
		if body == "" {
			body = entry.Description
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		captures = append(captures, model.RawCapture{
			ID:          uuid.New().String(),
			SourceType:  model.SourceArticle,
			SourceName:  s.name,
			URL:         entry.Link,
			URLHash:     URLHash(entry.Link),
			Title:       entry.Title,
			Body:        body,
			Author:      author,
			PublishedAt: published,
			FetchedAt:   now,
		})
	}
	return captures, nil
}

// URLHash is the stable dedup key for a source URL
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
