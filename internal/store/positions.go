package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ppiankov/trackrecord/internal/model"
)

// CreatePosition stores a newly opened simulated position
func (s *Store) CreatePosition(ctx context.Context, p *model.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, claim_id, subject_id, market_id, entry_price, size, shares, status, exit_price, outcome, realized_pnl, closed_at, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClaimID, p.SubjectID, p.MarketID, p.EntryPrice, p.Size, p.Shares,
		string(p.Status), nullFloat(p), string(p.Outcome), p.RealizedPnL,
		nullTime(p.ClosedAt), p.OpenedAt.UTC(),
	)
	return mapWriteErr(err)
}

// GetPositionByClaim returns the position opened for a claim
func (s *Store) GetPositionByClaim(ctx context.Context, claimID string) (*model.Position, error) {
	return s.queryPosition(ctx, positionColumns+` WHERE claim_id = ?`, claimID)
}

// ListPositionsBySubject returns all positions for a subject,
// newest first
func (s *Store) ListPositionsBySubject(ctx context.Context, subjectID string) ([]model.Position, error) {
	return s.queryPositions(ctx, positionColumns+` WHERE subject_id = ? ORDER BY opened_at DESC`, subjectID)
}

// ListOpenPositions returns every open position
func (s *Store) ListOpenPositions(ctx context.Context) ([]model.Position, error) {
	return s.queryPositions(ctx, positionColumns+` WHERE status = ? ORDER BY opened_at`, string(model.PositionOpen))
}

// ClosePosition persists the settlement of a position. A second close
// of the same position returns ErrNotFound.
func (s *Store) ClosePosition(ctx context.Context, p *model.Position) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET status = ?, exit_price = ?, outcome = ?, realized_pnl = ?, closed_at = ?
		WHERE id = ? AND status = ?`,
		string(p.Status), p.ExitPrice, string(p.Outcome), p.RealizedPnL,
		nullTime(p.ClosedAt), p.ID, string(model.PositionOpen))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpsertMetrics replaces the derived aggregate row for a subject
func (s *Store) UpsertMetrics(ctx context.Context, m *model.SubjectMetrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subject_metrics (subject_id, total_claims, resolved_claims, pending_claims, wins, losses, win_rate, total_pnl, rolling_30d, rolling_90d, avg_quality, subject_rank, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			total_claims = excluded.total_claims,
			resolved_claims = excluded.resolved_claims,
			pending_claims = excluded.pending_claims,
			wins = excluded.wins,
			losses = excluded.losses,
			win_rate = excluded.win_rate,
			total_pnl = excluded.total_pnl,
			rolling_30d = excluded.rolling_30d,
			rolling_90d = excluded.rolling_90d,
			avg_quality = excluded.avg_quality,
			subject_rank = excluded.subject_rank,
			computed_at = excluded.computed_at`,
		m.SubjectID, m.TotalClaims, m.ResolvedClaims, m.PendingClaims,
		m.Wins, m.Losses, m.WinRate, m.TotalPnL, m.Rolling30d, m.Rolling90d,
		m.AvgQuality, m.Rank, m.ComputedAt.UTC(),
	)
	return err
}

// GetMetrics returns the stored aggregate for one subject
func (s *Store) GetMetrics(ctx context.Context, subjectID string) (*model.SubjectMetrics, error) {
	rows, err := s.db.QueryContext(ctx, metricsColumns+` WHERE subject_id = ?`, subjectID)
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
	return scanMetrics(rows)
}

// Leaderboard returns stored metrics ordered by total PnL, best first
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]model.SubjectMetrics, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, metricsColumns+` ORDER BY total_pnl DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var all []model.SubjectMetrics
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, *m)
	}
	return all, rows.Err()
}

const positionColumns = `SELECT id, claim_id, subject_id, market_id, entry_price, size, shares, status, exit_price, outcome, realized_pnl, closed_at, opened_at FROM positions`

const metricsColumns = `SELECT subject_id, total_claims, resolved_claims, pending_claims, wins, losses, win_rate, total_pnl, rolling_30d, rolling_90d, avg_quality, subject_rank, computed_at FROM subject_metrics`

func (s *Store) queryPosition(ctx context.Context, query string, args ...any) (*model.Position, error) {
	positions, err := s.queryPositions(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, ErrNotFound
	}
	return &positions[0], nil
}

func (s *Store) queryPositions(ctx context.Context, query string, args ...any) ([]model.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		var status, outcome string
		var exitPrice sql.NullFloat64
		var closedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.SubjectID, &p.MarketID,
			&p.EntryPrice, &p.Size, &p.Shares, &status, &exitPrice,
			&outcome, &p.RealizedPnL, &closedAt, &p.OpenedAt); err != nil {
			return nil, err
		}
		p.Status = model.PositionStatus(status)
		p.Outcome = model.Outcome(outcome)
		if exitPrice.Valid {
			p.ExitPrice = exitPrice.Float64
		}
		if closedAt.Valid {
			t := closedAt.Time
			p.ClosedAt = &t
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func scanMetrics(rows *sql.Rows) (*model.SubjectMetrics, error) {
	var m model.SubjectMetrics
	if err := rows.Scan(&m.SubjectID, &m.TotalClaims, &m.ResolvedClaims,
		&m.PendingClaims, &m.Wins, &m.Losses, &m.WinRate, &m.TotalPnL,
		&m.Rolling30d, &m.Rolling90d, &m.AvgQuality, &m.Rank, &m.ComputedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// nullFloat stores the exit price as NULL while the position is open
func nullFloat(p *model.Position) any {
	if p.Status == model.PositionOpen {
		return nil
	}
	return p.ExitPrice
}
