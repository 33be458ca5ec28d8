package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ppiankov/trackrecord/internal/model"
)

// CreateCapture stores one ingested source item. Returns ErrDuplicate
// when the URL hash was already captured.
func (s *Store) CreateCapture(ctx context.Context, c *model.RawCapture) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO captures (id, source_type, source_name, url, url_hash, title, body, author, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.SourceType), c.SourceName, c.URL, c.URLHash,
		c.Title, c.Body, c.Author, c.PublishedAt.UTC(), c.FetchedAt.UTC(),
	)
	return mapWriteErr(err)
}

// CaptureExists reports whether a URL hash was already ingested
func (s *Store) CaptureExists(ctx context.Context, urlHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM captures WHERE url_hash = ?`, urlHash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetCapture returns a capture by ID
func (s *Store) GetCapture(ctx context.Context, id string) (*model.RawCapture, error) {
	var c model.RawCapture
	var sourceType string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_type, source_name, url, url_hash, title, body, author, published_at, fetched_at
		FROM captures WHERE id = ?`, id,
	).Scan(&c.ID, &sourceType, &c.SourceName, &c.URL, &c.URLHash,
		&c.Title, &c.Body, &c.Author, &c.PublishedAt, &c.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.SourceType = model.SourceType(sourceType)
	return &c, nil
}
