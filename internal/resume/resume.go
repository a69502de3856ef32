// Package resume implements resume CRUD and the AI-assisted operations
// layered on top of it. Every operation is scoped to the calling user.
package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/garnizeh/careerprep/internal/ai"
	"github.com/garnizeh/careerprep/internal/apperr"
	"github.com/garnizeh/careerprep/internal/latex"
	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger installs a logger for the resume package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Assistant is the subset of the AI engine used by resumes.
type Assistant interface {
	AnalyzeResume(ctx context.Context, content models.ResumeContent, jobDescription string) (*ai.ATSAnalysis, error)
	OptimizeResume(ctx context.Context, content models.ResumeContent, targetRole string) ([]ai.Optimization, error)
}

type CreateInput struct {
	Title    string               `json:"title" validate:"required,max=200"`
	Content  models.ResumeContent `json:"content"`
	Template string               `json:"template" validate:"max=32"`
}

// UpdateInput is a partial update; nil fields are left untouched. The ATS
// score is deliberately absent.
type UpdateInput struct {
	Title    *string               `json:"title" validate:"omitnil,min=1,max=200"`
	Content  *models.ResumeContent `json:"content"`
	Template *string               `json:"template" validate:"omitnil,max=32"`
}

type ApplyInput struct {
	Section       string `json:"section" validate:"required"`
	OptimizedText string `json:"optimizedText"`
}

// Export is a rendered LaTeX document ready to be served as a download.
type Export struct {
	Filename string
	Source   string
}

type Service struct {
	repo repository.ResumeRepo
	ai   Assistant
}

func NewService(repo repository.ResumeRepo, assistant Assistant) *Service {
	return &Service{repo: repo, ai: assistant}
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Resume, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if in.Template == "" {
		in.Template = latex.TemplateModern
	}

	r, err := s.repo.CreateResume(ctx, &models.Resume{
		UserID:   userID,
		Title:    in.Title,
		Content:  in.Content,
		Template: in.Template,
	})
	if err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	logger.Info("resume created", slog.String("resume_id", r.ID), slog.String("user_id", userID))
	return r, nil
}

// Get returns the resume when it exists and belongs to userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Resume, error) {
	r, err := s.repo.GetResume(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get resume: %w", err)
	}
	if r == nil {
		return nil, apperr.NotFound("Resume not found")
	}
	if r.UserID != userID {
		logger.Warn("resume access denied", slog.String("resume_id", id), slog.String("user_id", userID))
		return nil, apperr.Forbidden("Access denied")
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.Resume, error) {
	list, err := s.repo.ListResumesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	if list == nil {
		list = []models.Resume{}
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.Resume, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	return s.update(ctx, id, repository.ResumePatch{
		Title:    in.Title,
		Content:  in.Content,
		Template: in.Template,
	})
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	err := s.repo.DeleteResume(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Resume not found")
	}
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	return nil
}

// Analyze scores the resume and stores the score on it.
func (s *Service) Analyze(ctx context.Context, userID, id, jobDescription string) (*ai.ATSAnalysis, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	analysis, err := s.ai.AnalyzeResume(ctx, r.Content, jobDescription)
	if err != nil {
		logger.Error("resume analysis failed", slog.String("resume_id", id), slog.Any("err", err))
		return nil, apperr.Upstream("AI analysis failed. Please try again.", err)
	}

	if _, err := s.update(ctx, id, repository.ResumePatch{ATSScore: &analysis.Score}); err != nil {
		return nil, err
	}
	return analysis, nil
}

// Optimize returns rewrite proposals without applying them.
func (s *Service) Optimize(ctx context.Context, userID, id, targetRole string) ([]ai.Optimization, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	opts, err := s.ai.OptimizeResume(ctx, r.Content, targetRole)
	if err != nil {
		logger.Error("resume optimization failed", slog.String("resume_id", id), slog.Any("err", err))
		return nil, apperr.Upstream("AI optimization failed. Please try again.", err)
	}
	return opts, nil
}

// ApplyOptimization writes the text into the addressed section and stores
// the whole document.
func (s *Service) ApplyOptimization(ctx context.Context, userID, id string, in ApplyInput) (*models.Resume, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	sec, err := models.ParseSection(in.Section)
	if err != nil || !sec.Fits(r.Content) {
		return nil, apperr.Validation("Invalid section", apperr.FieldError{
			Field:   "section",
			Message: fmt.Sprintf("unknown section %q", in.Section),
		})
	}

	content := r.Content
	if sec.Summary {
		content.Basics.Summary = in.OptimizedText
	} else {
		content.Experience[sec.ExperienceIndex].Description = in.OptimizedText
	}
	return s.update(ctx, id, repository.ResumePatch{Content: &content})
}

// ExportLaTeX renders the stored resume with its template.
func (s *Service) ExportLaTeX(ctx context.Context, userID, id string) (*Export, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	src, err := latex.Render(r.Content, r.Template)
	if err != nil {
		return nil, fmt.Errorf("render resume %s: %w", id, err)
	}
	return &Export{Filename: latex.Filename(r.Title), Source: src}, nil
}

// Preview renders unsaved content.
func (s *Service) Preview(content models.ResumeContent, template string) (string, error) {
	if err := apperr.Validate(content); err != nil {
		return "", err
	}
	return latex.Render(content, template)
}

func (s *Service) update(ctx context.Context, id string, p repository.ResumePatch) (*models.Resume, error) {
	r, err := s.repo.UpdateResume(ctx, id, p)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Resume not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}
	return r, nil
}
