// Package interview drives mock interview sessions through
// setup -> in_progress -> completed, with model-generated questions,
// per-answer evaluation and a final report.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/garnizeh/careerprep/internal/ai"
	"github.com/garnizeh/careerprep/internal/apperr"
	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger installs a logger for the interview package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Assistant is the subset of the AI engine used by interviews.
type Assistant interface {
	GenerateQuestions(ctx context.Context, jobRole string, qtype models.QuestionType, resume *models.ResumeContent) ([]string, error)
	EvaluateAnswer(ctx context.Context, question, answer, jobRole string) (*ai.Evaluation, error)
	GenerateReport(ctx context.Context, jobRole string, answers []ai.AnsweredQuestion) (*ai.Report, error)
}

// Store is the persistence needed by the service.
type Store interface {
	repository.SessionRepo
	repository.QuestionRepo
	repository.ReportRepo
}

type CreateInput struct {
	JobRole      string              `json:"jobRole" validate:"required,max=200"`
	QuestionType models.QuestionType `json:"questionType" validate:"required"`
}

type UpdateInput struct {
	JobRole      *string               `json:"jobRole" validate:"omitnil,min=1,max=200"`
	QuestionType *models.QuestionType  `json:"questionType"`
	Status       *models.SessionStatus `json:"status"`
}

type GenerateInput struct {
	ResumeContent *models.ResumeContent `json:"resumeContent"`
}

type AnswerInput struct {
	Answer  string `json:"answer" validate:"required"`
	JobRole string `json:"jobRole" validate:"max=200"`
}

// AnswerResult pairs the stored question with the full evaluation.
type AnswerResult struct {
	Question   *models.InterviewQuestion `json:"question"`
	Evaluation *ai.Evaluation            `json:"evaluation"`
}

type Service struct {
	store Store
	ai    Assistant
}

func NewService(store Store, assistant Assistant) *Service {
	return &Service{store: store, ai: assistant}
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.InterviewSession, error) {
	in.JobRole = strings.TrimSpace(in.JobRole)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if err := checkQuestionType(in.QuestionType); err != nil {
		return nil, err
	}

	sess, err := s.store.CreateSession(ctx, &models.InterviewSession{
		UserID:       userID,
		JobRole:      in.JobRole,
		QuestionType: in.QuestionType,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Info("interview session created", slog.String("session_id", sess.ID), slog.String("user_id", userID))
	return sess, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	list, err := s.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if list == nil {
		list = []models.InterviewSession{}
	}
	return list, nil
}

// Get returns the session when it exists and belongs to userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.InterviewSession, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apperr.NotFound("Interview session not found")
	}
	if sess.UserID != userID {
		logger.Warn("session access denied", slog.String("session_id", id), slog.String("user_id", userID))
		return nil, apperr.Forbidden("Access denied")
	}
	return sess, nil
}

// Update changes the role or question type. Status may only move forward.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.InterviewSession, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.JobRole != nil {
		r := strings.TrimSpace(*in.JobRole)
		in.JobRole = &r
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if in.QuestionType != nil {
		if err := checkQuestionType(*in.QuestionType); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if in.Status.Rank() < 0 {
			return nil, apperr.Validation("Invalid status", apperr.FieldError{Field: "status", Message: "must be one of: setup in_progress completed"})
		}
		if in.Status.Rank() < sess.Status.Rank() {
			return nil, apperr.Validation("Invalid status", apperr.FieldError{
				Field:   "status",
				Message: fmt.Sprintf("cannot move from %s back to %s", sess.Status, *in.Status),
			})
		}
	}

	updated, err := s.store.UpdateSession(ctx, id, repository.SessionPatch{
		JobRole:      in.JobRole,
		QuestionType: in.QuestionType,
		Status:       in.Status,
	})
	return s.sessionResult(updated, err, "update session")
}

// Start moves a session out of setup. Sessions past setup are returned as is.
func (s *Service) Start(ctx context.Context, userID, id string) (*models.InterviewSession, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	sess, err := s.store.StartSession(ctx, id)
	return s.sessionResult(sess, err, "start session")
}

// Complete marks the session completed from any state.
func (s *Service) Complete(ctx context.Context, userID, id string) (*models.InterviewSession, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	sess, err := s.store.CompleteSession(ctx, id)
	return s.sessionResult(sess, err, "complete session")
}

func (s *Service) sessionResult(sess *models.InterviewSession, err error, op string) (*models.InterviewSession, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Interview session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// GenerateQuestions asks the model for questions and appends them to the
// session, continuing the existing position sequence.
func (s *Service) GenerateQuestions(ctx context.Context, userID, id string, in GenerateInput) ([]models.InterviewQuestion, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.ResumeContent != nil {
		if err := apperr.Validate(in); err != nil {
			return nil, err
		}
	}

	texts, err := s.ai.GenerateQuestions(ctx, sess.JobRole, sess.QuestionType, in.ResumeContent)
	if err == nil && len(texts) == 0 {
		err = errors.New("model returned no questions")
	}
	if err != nil {
		logger.Error("question generation failed", slog.String("session_id", id), slog.Any("err", err))
		return nil, apperr.Upstream("AI question generation failed. Please try again.", err)
	}

	existing, err := s.store.ListQuestionsBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	base := len(existing)

	created := make([]models.InterviewQuestion, 0, len(texts))
	for i, text := range texts {
		q, err := s.store.CreateQuestion(ctx, &models.InterviewQuestion{
			SessionID:    id,
			QuestionText: text,
			Order:        base + i,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Questions are already being generated for this session")
		}
		if err != nil {
			return nil, fmt.Errorf("create question %d: %w", base+i, err)
		}
		created = append(created, *q)
	}
	logger.Info("questions generated", slog.String("session_id", id), slog.Int("count", len(created)))
	return created, nil
}

func (s *Service) ListQuestions(ctx context.Context, userID, id string) ([]models.InterviewQuestion, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	list, err := s.store.ListQuestionsBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if list == nil {
		list = []models.InterviewQuestion{}
	}
	return list, nil
}

// SubmitAnswer evaluates and stores an answer. Re-answering overwrites the
// previous answer and score.
func (s *Service) SubmitAnswer(ctx context.Context, userID, questionID string, in AnswerInput) (*AnswerResult, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return nil, apperr.NotFound("Question not found")
	}
	sess, err := s.store.GetSession(ctx, q.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil || sess.UserID != userID {
		logger.Warn("question access denied", slog.String("question_id", questionID), slog.String("user_id", userID))
		return nil, apperr.Forbidden("Access denied")
	}

	in.Answer = strings.TrimSpace(in.Answer)
	in.JobRole = strings.TrimSpace(in.JobRole)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	jobRole := in.JobRole
	if jobRole == "" {
		jobRole = sess.JobRole
	}

	eval, err := s.ai.EvaluateAnswer(ctx, q.QuestionText, in.Answer, jobRole)
	if err != nil {
		logger.Error("answer evaluation failed", slog.String("question_id", questionID), slog.Any("err", err))
		return nil, apperr.Upstream("AI evaluation failed. Please try again.", err)
	}

	updated, err := s.store.AnswerQuestion(ctx, questionID, in.Answer, eval.Score)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Question not found")
	}
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	return &AnswerResult{Question: updated, Evaluation: eval}, nil
}

// GenerateReport builds the session report from the answered questions.
// Nothing is stored when no question has been answered.
func (s *Service) GenerateReport(ctx context.Context, userID, id string) (*models.InterviewReport, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	questions, err := s.store.ListQuestionsBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	var answered []ai.AnsweredQuestion
	for _, q := range questions {
		if !q.Answered() {
			continue
		}
		answered = append(answered, ai.AnsweredQuestion{Question: q.QuestionText, Answer: *q.Answer, Score: *q.Score})
	}
	if len(answered) == 0 {
		return nil, apperr.Validation("No answered questions found")
	}

	rep, err := s.ai.GenerateReport(ctx, sess.JobRole, answered)
	if err != nil {
		logger.Error("report generation failed", slog.String("session_id", id), slog.Any("err", err))
		return nil, apperr.Upstream("AI report generation failed. Please try again.", err)
	}

	stored, err := s.store.CreateReport(ctx, &models.InterviewReport{
		SessionID:       id,
		ConfidenceScore: rep.ConfidenceScore,
		GrammarScore:    rep.GrammarScore,
		RelevanceScore:  rep.RelevanceScore,
		OverallScore:    rep.OverallScore,
		Feedback:        rep.Feedback,
	})
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	logger.Info("report generated", slog.String("session_id", id), slog.Int("answered", len(answered)))
	return stored, nil
}

func (s *Service) GetReport(ctx context.Context, userID, id string) (*models.InterviewReport, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	rep, err := s.store.GetReportBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if rep == nil {
		return nil, apperr.NotFound("Report not found")
	}
	return rep, nil
}

func checkQuestionType(t models.QuestionType) error {
	if t.Valid() {
		return nil
	}
	return apperr.Validation("Invalid question type", apperr.FieldError{
		Field:   "questionType",
		Message: "must be one of: technical behavioral hr mixed",
	})
}
