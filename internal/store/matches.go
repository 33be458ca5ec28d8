package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// CreateMatch links a claim to a market. The unique constraint on
// claim_id enforces the one-match-per-claim rule.
func (s *Store) CreateMatch(ctx context.Context, m *model.MarketMatch) error {
	alternatives, err := marshalAlternatives(m.Alternatives)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (id, claim_id, market_id, question, similarity, match_type, entry_price, alternatives, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ClaimID, m.MarketID, m.Question, m.Similarity,
		string(m.Type), m.EntryPrice, alternatives, m.CreatedAt.UTC(),
	)
	return mapWriteErr(err)
}

// GetMatchByClaim returns the market match for a claim
func (s *Store) GetMatchByClaim(ctx context.Context, claimID string) (*model.MarketMatch, error) {
	var m model.MarketMatch
	var matchType string
	var alternatives sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, claim_id, market_id, question, similarity, match_type, entry_price, alternatives, created_at
		FROM matches WHERE claim_id = ?`, claimID,
	).Scan(&m.ID, &m.ClaimID, &m.MarketID, &m.Question, &m.Similarity,
		&matchType, &m.EntryPrice, &alternatives, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Type = model.MatchType(matchType)
	if alternatives.Valid && alternatives.String != "" {
		if err := json.Unmarshal([]byte(alternatives.String), &m.Alternatives); err != nil {
			return nil, fmt.Errorf("decode alternatives for match %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

// EnqueueReview adds a suggested match to the human review queue
func (s *Store) EnqueueReview(ctx context.Context, e *model.ReviewQueueEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (id, claim_id, market_id, question, similarity, status, notes, created_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ClaimID, e.MarketID, e.Question, e.Similarity,
		string(e.Status), e.Notes, e.CreatedAt.UTC(), nullTime(e.DecidedAt),
	)
	return mapWriteErr(err)
}

// ListReviewQueue returns queue entries in the given state, oldest first
func (s *Store) ListReviewQueue(ctx context.Context, status model.ReviewStatus) ([]model.ReviewQueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, market_id, question, similarity, status, notes, created_at, decided_at
		FROM review_queue WHERE status = ? ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ReviewQueueEntry
	for rows.Next() {
		e, err := scanReviewEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetReviewEntry returns one queue entry by ID
func (s *Store) GetReviewEntry(ctx context.Context, id string) (*model.ReviewQueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, market_id, question, similarity, status, notes, created_at, decided_at
		FROM review_queue WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanReviewEntry(rows)
}

// DecideReview records a human adjudication of a queued match
func (s *Store) DecideReview(ctx context.Context, id string, status model.ReviewStatus, notes string, decidedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_queue SET status = ?, notes = ?, decided_at = ?
		WHERE id = ? AND status = ?`,
		string(status), notes, decidedAt.UTC(), id, string(model.ReviewPending))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanReviewEntry(rows *sql.Rows) (*model.ReviewQueueEntry, error) {
	var e model.ReviewQueueEntry
	var status string
	var decidedAt sql.NullTime
	if err := rows.Scan(&e.ID, &e.ClaimID, &e.MarketID, &e.Question, &e.Similarity,
		&status, &e.Notes, &e.CreatedAt, &decidedAt); err != nil {
		return nil, err
	}
	e.Status = model.ReviewStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		e.DecidedAt = &t
	}
	return &e, nil
}

func marshalAlternatives(alts []model.MatchCandidate) (any, error) {
	if len(alts) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(alts)
	if err != nil {
		return nil, fmt.Errorf("encode alternatives: %w", err)
	}
	return string(raw), nil
}
