package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

const sessionColumns = `id, user_id, job_role, question_type, status, started_at, completed_at, created_at`

func (r *SQLiteRepo) CreateSession(ctx context.Context, s *models.InterviewSession) (*models.InterviewSession, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}

	out := *s
	out.ID = uuid.NewString()
	out.Status = models.StatusSetup
	out.StartedAt, out.CompletedAt = nil, nil
	out.CreatedAt = now()

	_, err := r.conn.Exec(ctx, `INSERT INTO interview_sessions (id, user_id, job_role, question_type, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.JobRole, string(out.QuestionType), string(out.Status), toUnix(out.CreatedAt))
	if err != nil {
		return nil, translate(err)
	}

	return &out, nil
}

func (r *SQLiteRepo) GetSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return s, err
}

func (r *SQLiteRepo) ListSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.InterviewSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *s)
	}

	return out, rows.Err()
}

// UpdateSession writes the non-nil patch fields. Moving the status forward
// stamps started_at / completed_at the same way Start and Complete do.
func (r *SQLiteRepo) UpdateSession(ctx context.Context, id string, p repository.SessionPatch) (*models.InterviewSession, error) {
	cur, err := r.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, repository.ErrNotFound
	}

	if p.JobRole != nil {
		cur.JobRole = *p.JobRole
	}
	if p.QuestionType != nil {
		cur.QuestionType = *p.QuestionType
	}
	if p.Status != nil && *p.Status != cur.Status {
		ts := now()
		switch *p.Status {
		case models.StatusInProgress:
			cur.StartedAt = &ts
		case models.StatusCompleted:
			if cur.StartedAt == nil {
				cur.StartedAt = &ts
			}
			cur.CompletedAt = &ts
		}
		cur.Status = *p.Status
	}

	_, err = r.conn.Exec(ctx, `UPDATE interview_sessions SET job_role = ?, question_type = ?, status = ?, started_at = ?, completed_at = ? WHERE id = ?`,
		cur.JobRole, string(cur.QuestionType), string(cur.Status), nullTime(cur.StartedAt), nullTime(cur.CompletedAt), id)
	if err != nil {
		return nil, err
	}

	return cur, nil
}

// StartSession moves a session in setup to in_progress. Sessions already past
// setup are returned unchanged.
func (r *SQLiteRepo) StartSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	if _, err := r.conn.Exec(ctx, `UPDATE interview_sessions SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusInProgress), toUnix(now()), id, string(models.StatusSetup)); err != nil {
		return nil, err
	}

	return r.mustGetSession(ctx, id)
}

// CompleteSession marks the session completed and stamps completed_at.
func (r *SQLiteRepo) CompleteSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	ts := toUnix(now())
	if _, err := r.conn.Exec(ctx, `UPDATE interview_sessions SET status = ?, completed_at = ?, started_at = COALESCE(started_at, ?) WHERE id = ?`,
		string(models.StatusCompleted), ts, ts, id); err != nil {
		return nil, err
	}

	return r.mustGetSession(ctx, id)
}

func (r *SQLiteRepo) mustGetSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	s, err := r.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, repository.ErrNotFound
	}

	return s, nil
}

func scanSession(s scanner) (*models.InterviewSession, error) {
	var (
		out                models.InterviewSession
		qtype, status      string
		started, completed sql.NullInt64
		created            int64
	)
	if err := s.Scan(&out.ID, &out.UserID, &out.JobRole, &qtype, &status, &started, &completed, &created); err != nil {
		return nil, err
	}
	out.QuestionType = models.QuestionType(qtype)
	out.Status = models.SessionStatus(status)
	out.StartedAt = timePtr(started)
	out.CompletedAt = timePtr(completed)
	out.CreatedAt = fromUnix(created)

	return &out, nil
}
