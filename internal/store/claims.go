package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/trackrecord/internal/ledger"
	"github.com/ppiankov/trackrecord/internal/model"
)

// CreateClaim inserts a claim row. The chain fields must already be set
// by the ledger; unique constraints on content_hash and chain_index
// reject duplicates and chain races respectively.
func (s *Store) CreateClaim(ctx context.Context, c *model.Claim) error {
	quality, err := marshalQuality(c.Quality)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (
			id, subject_id, capture_id, text, quote, source_url, captured_at,
			confidence, category, resolve_by,
			content_hash, chain_hash, prev_chain_hash, chain_index,
			status, flag, flag_note, quality,
			outcome, resolved_at, resolution_notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SubjectID, c.CaptureID, c.Text, c.Quote, c.SourceURL, c.CapturedAt.UTC(),
		c.Confidence, string(c.Category), c.ResolveBy.UTC(),
		c.ContentHash, c.ChainHash, c.PrevChainHash, c.ChainIndex,
		string(c.Status), string(c.Flag), c.FlagNote, quality,
		string(c.Outcome), nullTime(c.ResolvedAt), c.ResolutionNotes, c.CreatedAt.UTC(),
	)
	return mapWriteErr(err)
}

// GetClaim returns a claim by ID
func (s *Store) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	return s.queryClaim(ctx, claimColumns+` WHERE id = ?`, id)
}

// ClaimExists reports whether a claim with the given content hash is
// already stored. Used for pre-insert dedup; the unique index remains
// the authority under races.
func (s *Store) ClaimExists(ctx context.Context, contentHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM claims WHERE content_hash = ?`, contentHash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListClaimsByStatus returns claims in the given lifecycle state,
// oldest first
func (s *Store) ListClaimsByStatus(ctx context.Context, status model.ClaimStatus) ([]model.Claim, error) {
	return s.queryClaims(ctx, claimColumns+` WHERE status = ? ORDER BY created_at`, string(status))
}

// ListClaimsBySubject returns all claims attributed to a subject,
// newest first
func (s *Store) ListClaimsBySubject(ctx context.Context, subjectID string) ([]model.Claim, error) {
	return s.queryClaims(ctx, claimColumns+` WHERE subject_id = ? ORDER BY created_at DESC`, subjectID)
}

// ListUnresolvedPastDeadline returns unresolved claims whose resolve-by
// point has passed and that are not already flagged as expired
func (s *Store) ListUnresolvedPastDeadline(ctx context.Context, now time.Time) ([]model.Claim, error) {
	return s.queryClaims(ctx,
		claimColumns+` WHERE status != ? AND resolve_by < ? AND flag != ? ORDER BY resolve_by`,
		string(model.StatusResolved), now.UTC(), string(model.FlagTimeframeExpired))
}

// ClaimsInChainOrder returns every claim ordered by ascending chain index
func (s *Store) ClaimsInChainOrder(ctx context.Context) ([]model.Claim, error) {
	return s.queryClaims(ctx, claimColumns+` ORDER BY chain_index`)
}

// ChainTail returns the entry with the highest chain index, or nil when
// the chain is empty
func (s *Store) ChainTail(ctx context.Context) (*ledger.Tail, error) {
	var tail ledger.Tail
	err := s.db.QueryRowContext(ctx,
		`SELECT chain_hash, chain_index FROM claims ORDER BY chain_index DESC LIMIT 1`,
	).Scan(&tail.ChainHash, &tail.ChainIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tail, nil
}

// UpdateClaimStatus transitions a claim's lifecycle state and flag.
// Chain and content fields are deliberately not touchable here.
func (s *Store) UpdateClaimStatus(ctx context.Context, id string, status model.ClaimStatus, flag model.FlagReason, flagNote string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE claims SET status = ?, flag = ?, flag_note = ? WHERE id = ?`,
		string(status), string(flag), flagNote, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RecordResolution stores the final outcome of a claim
func (s *Store) RecordResolution(ctx context.Context, id string, outcome model.Outcome, resolvedAt time.Time, notes string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE claims SET status = ?, outcome = ?, resolved_at = ?, resolution_notes = ?, flag = '', flag_note = ''
		WHERE id = ? AND status != ?`,
		string(model.StatusResolved), string(outcome), resolvedAt.UTC(), notes,
		id, string(model.StatusResolved))
	if err != nil {
		return err
	}
	return requireRow(res)
}

const claimColumns = `SELECT
	id, subject_id, capture_id, text, quote, source_url, captured_at,
	confidence, category, resolve_by,
	content_hash, chain_hash, prev_chain_hash, chain_index,
	status, flag, flag_note, quality,
	outcome, resolved_at, resolution_notes, created_at
FROM claims`

func (s *Store) queryClaim(ctx context.Context, query string, args ...any) (*model.Claim, error) {
	claims, err := s.queryClaims(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, ErrNotFound
	}
	return &claims[0], nil
}

func (s *Store) queryClaims(ctx context.Context, query string, args ...any) ([]model.Claim, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var category, status, flag, outcome string
		var quality sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.SubjectID, &c.CaptureID, &c.Text, &c.Quote, &c.SourceURL, &c.CapturedAt,
			&c.Confidence, &category, &c.ResolveBy,
			&c.ContentHash, &c.ChainHash, &c.PrevChainHash, &c.ChainIndex,
			&status, &flag, &c.FlagNote, &quality,
			&outcome, &resolvedAt, &c.ResolutionNotes, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.Category = model.Category(category)
		c.Status = model.ClaimStatus(status)
		c.Flag = model.FlagReason(flag)
		c.Outcome = model.Outcome(outcome)
		if quality.Valid && quality.String != "" {
			var q model.QualityScore
			if err := json.Unmarshal([]byte(quality.String), &q); err != nil {
				return nil, fmt.Errorf("decode quality for claim %s: %w", c.ID, err)
			}
			c.Quality = &q
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			c.ResolvedAt = &t
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func marshalQuality(q *model.QualityScore) (any, error) {
	if q == nil {
		return nil, nil
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode quality: %w", err)
	}
	return string(raw), nil
}
