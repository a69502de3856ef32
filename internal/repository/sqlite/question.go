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

const questionColumns = `id, session_id, question_text, answer, score, position, created_at`

func (r *SQLiteRepo) CreateQuestion(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error) {
	if q == nil {
		return nil, fmt.Errorf("question is nil")
	}

	out := *q
	out.ID = uuid.NewString()
	out.Answer, out.Score = nil, nil
	out.CreatedAt = now()

	_, err := r.conn.Exec(ctx, `INSERT INTO interview_questions (id, session_id, question_text, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.SessionID, out.QuestionText, out.Order, toUnix(out.CreatedAt))
	if err != nil {
		return nil, translate(err)
	}

	return &out, nil
}

func (r *SQLiteRepo) GetQuestion(ctx context.Context, id string) (*models.InterviewQuestion, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+questionColumns+` FROM interview_questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return q, err
}

func (r *SQLiteRepo) ListQuestionsBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+questionColumns+` FROM interview_questions WHERE session_id = ? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.InterviewQuestion{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *q)
	}

	return out, rows.Err()
}

// AnswerQuestion stores the answer and score; a later call overwrites both.
func (r *SQLiteRepo) AnswerQuestion(ctx context.Context, id, answer string, score int) (*models.InterviewQuestion, error) {
	res, err := r.conn.Exec(ctx, `UPDATE interview_questions SET answer = ?, score = ? WHERE id = ?`, answer, score, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetQuestion(ctx, id)
}

func scanQuestion(s scanner) (*models.InterviewQuestion, error) {
	var (
		q       models.InterviewQuestion
		answer  sql.NullString
		score   sql.NullInt64
		created int64
	)
	if err := s.Scan(&q.ID, &q.SessionID, &q.QuestionText, &answer, &score, &q.Order, &created); err != nil {
		return nil, err
	}
	if answer.Valid {
		v := answer.String
		q.Answer = &v
	}
	if score.Valid {
		v := int(score.Int64)
		q.Score = &v
	}
	q.CreatedAt = fromUnix(created)

	return &q, nil
}
