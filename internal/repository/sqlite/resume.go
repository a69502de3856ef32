package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

const resumeColumns = `id, user_id, title, content, ats_score, template, created_at, updated_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepo) CreateResume(ctx context.Context, res *models.Resume) (*models.Resume, error) {
	if res == nil {
		return nil, fmt.Errorf("resume is nil")
	}

	out := *res
	out.ID = uuid.NewString()
	out.Content.Normalize()
	if out.Template == "" {
		out.Template = "modern"
	}
	ts := now()
	out.CreatedAt, out.UpdatedAt = ts, ts

	content, err := json.Marshal(out.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal resume content: %w", err)
	}

	_, err = r.conn.Exec(ctx, `INSERT INTO resumes (`+resumeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.Title, string(content), out.ATSScore, out.Template, toUnix(ts), toUnix(ts))
	if err != nil {
		return nil, translate(err)
	}

	return &out, nil
}

func (r *SQLiteRepo) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = ?`, id)
	res, err := scanResume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return res, err
}

func (r *SQLiteRepo) ListResumesByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Resume{}
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *res)
	}

	return out, rows.Err()
}

// UpdateResume applies the non-nil patch fields and always bumps updated_at.
func (r *SQLiteRepo) UpdateResume(ctx context.Context, id string, p repository.ResumePatch) (*models.Resume, error) {
	cur, err := r.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, repository.ErrNotFound
	}

	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.Content != nil {
		cur.Content = *p.Content
		cur.Content.Normalize()
	}
	if p.Template != nil {
		cur.Template = *p.Template
	}
	if p.ATSScore != nil {
		cur.ATSScore = *p.ATSScore
	}
	cur.UpdatedAt = now()

	content, err := json.Marshal(cur.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal resume content: %w", err)
	}

	_, err = r.conn.Exec(ctx, `UPDATE resumes SET title = ?, content = ?, ats_score = ?, template = ?, updated_at = ? WHERE id = ?`,
		cur.Title, string(content), cur.ATSScore, cur.Template, toUnix(cur.UpdatedAt), id)
	if err != nil {
		return nil, err
	}

	return cur, nil
}

func (r *SQLiteRepo) DeleteResume(ctx context.Context, id string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM resumes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanResume(s scanner) (*models.Resume, error) {
	var (
		res              models.Resume
		content          string
		created, updated int64
	)
	if err := s.Scan(&res.ID, &res.UserID, &res.Title, &content, &res.ATSScore, &res.Template, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &res.Content); err != nil {
		return nil, fmt.Errorf("decode resume %s content: %w", res.ID, err)
	}
	res.Content.Normalize()
	res.CreatedAt, res.UpdatedAt = fromUnix(created), fromUnix(updated)

	return &res, nil
}
