package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// CreateSubject inserts a new tracked subject. Returns ErrDuplicate when
// the handle is already taken.
func (s *Store) CreateSubject(ctx context.Context, sub *model.TrackedSubject) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects (id, name, handle, title, affiliation, domains, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Handle, sub.Title, sub.Affiliation,
		joinDomains(sub.Domains), boolToInt(sub.Verified), sub.CreatedAt.UTC(),
	)
	return mapWriteErr(err)
}

// GetSubject returns a subject by ID
func (s *Store) GetSubject(ctx context.Context, id string) (*model.TrackedSubject, error) {
	return s.scanSubject(s.db.QueryRowContext(ctx,
		subjectColumns+` WHERE id = ?`, id))
}

// GetSubjectByHandle returns the subject with the given canonical handle,
// or nil when no such subject exists
func (s *Store) GetSubjectByHandle(ctx context.Context, handle string) (*model.TrackedSubject, error) {
	sub, err := s.scanSubject(s.db.QueryRowContext(ctx,
		subjectColumns+` WHERE handle = ?`, handle))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// ListSubjects returns all tracked subjects ordered by name
func (s *Store) ListSubjects(ctx context.Context) ([]model.TrackedSubject, error) {
	rows, err := s.db.QueryContext(ctx, subjectColumns+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subjects []model.TrackedSubject
	for rows.Next() {
		var sub model.TrackedSubject
		var domains string
		var verified int
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Handle, &sub.Title,
			&sub.Affiliation, &domains, &verified, &sub.CreatedAt); err != nil {
			return nil, err
		}
		sub.Domains = splitDomains(domains)
		sub.Verified = verified != 0
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// SetSubjectVerified marks a subject as human-verified
func (s *Store) SetSubjectVerified(ctx context.Context, id string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET verified = ? WHERE id = ?`, boolToInt(verified), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const subjectColumns = `SELECT id, name, handle, title, affiliation, domains, verified, created_at FROM subjects`

func (s *Store) scanSubject(row *sql.Row) (*model.TrackedSubject, error) {
	var sub model.TrackedSubject
	var domains string
	var verified int
	err := row.Scan(&sub.ID, &sub.Name, &sub.Handle, &sub.Title,
		&sub.Affiliation, &domains, &verified, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sub.Domains = splitDomains(domains)
	sub.Verified = verified != 0
	return &sub, nil
}

func joinDomains(domains []string) string {
	return strings.Join(domains, ",")
}

func splitDomains(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
