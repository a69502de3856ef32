package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/careerprep/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/
// (sqlite) and pkg/repository/memory.
//
// Getters return (nil, nil) when the row does not exist.

var (
	// ErrNotFound is returned by update operations on a missing row.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("repository: duplicate")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// ResumePatch carries the fields of a partial resume update. Nil fields are
// left untouched.
type ResumePatch struct {
	Title    *string
	Content  *models.ResumeContent
	Template *string
	ATSScore *int
}

type ResumeRepo interface {
	CreateResume(ctx context.Context, r *models.Resume) (*models.Resume, error)
	GetResume(ctx context.Context, id string) (*models.Resume, error)
	ListResumesByUser(ctx context.Context, userID string) ([]models.Resume, error)
	UpdateResume(ctx context.Context, id string, p ResumePatch) (*models.Resume, error)
	DeleteResume(ctx context.Context, id string) error
}

// SessionPatch carries the fields of a partial session update.
type SessionPatch struct {
	JobRole      *string
	QuestionType *models.QuestionType
	Status       *models.SessionStatus
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s *models.InterviewSession) (*models.InterviewSession, error)
	GetSession(ctx context.Context, id string) (*models.InterviewSession, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error)
	UpdateSession(ctx context.Context, id string, p SessionPatch) (*models.InterviewSession, error)
	StartSession(ctx context.Context, id string) (*models.InterviewSession, error)
	CompleteSession(ctx context.Context, id string) (*models.InterviewSession, error)
}

type QuestionRepo interface {
	CreateQuestion(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error)
	GetQuestion(ctx context.Context, id string) (*models.InterviewQuestion, error)
	ListQuestionsBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error)
	AnswerQuestion(ctx context.Context, id, answer string, score int) (*models.InterviewQuestion, error)
}

type ReportRepo interface {
	CreateReport(ctx context.Context, r *models.InterviewReport) (*models.InterviewReport, error)
	GetReport(ctx context.Context, id string) (*models.InterviewReport, error)
	GetReportBySession(ctx context.Context, sessionID string) (*models.InterviewReport, error)
}

// Store is the full capability set served by a single backing adapter.
type Store interface {
	UserRepo
	ResumeRepo
	SessionRepo
	QuestionRepo
	ReportRepo
}
