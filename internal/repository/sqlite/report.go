package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/careerprep/pkg/models"
)

const reportColumns = `id, session_id, confidence_score, grammar_score, relevance_score, overall_score, feedback, created_at`

// CreateReport inserts a report. A second report for the same session fails
// with repository.ErrDuplicate.
func (r *SQLiteRepo) CreateReport(ctx context.Context, rep *models.InterviewReport) (*models.InterviewReport, error) {
	if rep == nil {
		return nil, fmt.Errorf("report is nil")
	}

	out := *rep
	out.ID = uuid.NewString()
	out.CreatedAt = now()
	if out.Feedback.Strengths == nil {
		out.Feedback.Strengths = []string{}
	}
	if out.Feedback.Improvements == nil {
		out.Feedback.Improvements = []string{}
	}

	feedback, err := json.Marshal(out.Feedback)
	if err != nil {
		return nil, fmt.Errorf("marshal report feedback: %w", err)
	}

	_, err = r.conn.Exec(ctx, `INSERT INTO interview_reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.SessionID, out.ConfidenceScore, out.GrammarScore, out.RelevanceScore, out.OverallScore, string(feedback), toUnix(out.CreatedAt))
	if err != nil {
		err = translate(err)
		r.logger.Debug("create report failed", "session_id", out.SessionID, "error", err)
		return nil, err
	}

	return &out, nil
}

func (r *SQLiteRepo) GetReport(ctx context.Context, id string) (*models.InterviewReport, error) {
	return r.getReport(ctx, `SELECT `+reportColumns+` FROM interview_reports WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetReportBySession(ctx context.Context, sessionID string) (*models.InterviewReport, error) {
	return r.getReport(ctx, `SELECT `+reportColumns+` FROM interview_reports WHERE session_id = ?`, sessionID)
}

func (r *SQLiteRepo) getReport(ctx context.Context, query string, arg string) (*models.InterviewReport, error) {
	var (
		rep      models.InterviewReport
		feedback string
		created  int64
	)
	row := r.conn.QueryRow(ctx, query, arg)
	if err := row.Scan(&rep.ID, &rep.SessionID, &rep.ConfidenceScore, &rep.GrammarScore, &rep.RelevanceScore, &rep.OverallScore, &feedback, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}
	if err := json.Unmarshal([]byte(feedback), &rep.Feedback); err != nil {
		return nil, fmt.Errorf("decode report %s feedback: %w", rep.ID, err)
	}
	rep.CreatedAt = fromUnix(created)

	return &rep, nil
}
