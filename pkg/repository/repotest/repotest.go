// Package repotest holds the behavioural suite every repository.Store
// adapter must pass.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

// Run executes the suite. newStore must return an empty store per call.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Resumes", func(t *testing.T) { testResumes(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("Questions", func(t *testing.T) { testQuestions(t, newStore(t)) })
	t.Run("Reports", func(t *testing.T) { testReports(t, newStore(t)) })
}

func mustUser(t *testing.T, s repository.Store, name string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &models.User{Username: name, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()

	got, err := s.GetUser(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.CreateUser(ctx, nil)
	assert.Error(t, err)

	u := mustUser(t, s, "alice")
	assert.NotEmpty(t, u.ID)

	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "hash", byID.PasswordHash)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func testResumes(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "bob")

	got, err := s.GetResume(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	first, err := s.CreateResume(ctx, &models.Resume{
		UserID: u.ID,
		Title:  "First",
		Content: models.ResumeContent{
			Basics:     models.Basics{Name: "Bob", Summary: "Engineer"},
			Experience: []models.Experience{{Company: "Acme", Position: "Dev", Description: "Built things"}},
			Skills:     []string{"Go"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "modern", first.Template)
	assert.Equal(t, 0, first.ATSScore)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := s.CreateResume(ctx, &models.Resume{UserID: u.ID, Title: "Second", Template: "classic"})
	require.NoError(t, err)
	assert.NotNil(t, second.Content.Skills)
	assert.NotNil(t, second.Content.Experience)

	list, err := s.ListResumesByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	title := "First v2"
	score := 72
	updated, err := s.UpdateResume(ctx, first.ID, repository.ResumePatch{Title: &title, ATSScore: &score})
	require.NoError(t, err)
	assert.Equal(t, "First v2", updated.Title)
	assert.Equal(t, 72, updated.ATSScore)
	assert.Equal(t, "Acme", updated.Content.Experience[0].Company)
	assert.False(t, updated.UpdatedAt.Before(first.UpdatedAt))

	list, err = s.ListResumesByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "most recently updated first")

	reloaded, err := s.GetResume(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Built things", reloaded.Content.Experience[0].Description)

	_, err = s.UpdateResume(ctx, "missing", repository.ResumePatch{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.DeleteResume(ctx, first.ID))
	gone, err := s.GetResume(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.ErrorIs(t, s.DeleteResume(ctx, first.ID), repository.ErrNotFound)

	other := mustUser(t, s, "carol")
	empty, err := s.ListResumesByUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testSessions(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "dave")

	a, err := s.CreateSession(ctx, &models.InterviewSession{UserID: u.ID, JobRole: "Backend", QuestionType: models.QuestionTypeTechnical})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSetup, a.Status)
	assert.Nil(t, a.StartedAt)
	assert.Nil(t, a.CompletedAt)

	b, err := s.CreateSession(ctx, &models.InterviewSession{UserID: u.ID, JobRole: "SRE", QuestionType: models.QuestionTypeMixed})
	require.NoError(t, err)

	list, err := s.ListSessionsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	started, err := s.StartSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	again, err := s.StartSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, started.StartedAt.UnixNano(), again.StartedAt.UnixNano(), "start is idempotent")

	done, err := s.CompleteSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	role := "Platform"
	status := models.StatusInProgress
	patched, err := s.UpdateSession(ctx, b.ID, repository.SessionPatch{JobRole: &role, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Platform", patched.JobRole)
	assert.Equal(t, models.StatusInProgress, patched.Status)
	assert.NotNil(t, patched.StartedAt)

	_, err = s.StartSession(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.UpdateSession(ctx, "missing", repository.SessionPatch{JobRole: &role})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	missing, err := s.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testQuestions(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "erin")
	sess, err := s.CreateSession(ctx, &models.InterviewSession{UserID: u.ID, JobRole: "Backend", QuestionType: models.QuestionTypeBehavioral})
	require.NoError(t, err)

	for i, text := range []string{"Q2", "Q0", "Q1"} {
		order := []int{2, 0, 1}[i]
		_, err := s.CreateQuestion(ctx, &models.InterviewQuestion{SessionID: sess.ID, QuestionText: text, Order: order})
		require.NoError(t, err)
	}

	_, err = s.CreateQuestion(ctx, &models.InterviewQuestion{SessionID: sess.ID, QuestionText: "dup", Order: 1})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	list, err := s.ListQuestionsBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, q := range list {
		assert.Equal(t, i, q.Order)
		assert.Nil(t, q.Answer)
		assert.Nil(t, q.Score)
	}

	answered, err := s.AnswerQuestion(ctx, list[0].ID, "first", 40)
	require.NoError(t, err)
	require.NotNil(t, answered.Answer)
	assert.Equal(t, "first", *answered.Answer)
	assert.True(t, answered.Answered())

	answered, err = s.AnswerQuestion(ctx, list[0].ID, "second", 90)
	require.NoError(t, err)
	assert.Equal(t, "second", *answered.Answer)
	assert.Equal(t, 90, *answered.Score)

	_, err = s.AnswerQuestion(ctx, "missing", "x", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	none, err := s.GetQuestion(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func testReports(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "frank")
	sess, err := s.CreateSession(ctx, &models.InterviewSession{UserID: u.ID, JobRole: "Backend", QuestionType: models.QuestionTypeTechnical})
	require.NoError(t, err)

	none, err := s.GetReportBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	rep, err := s.CreateReport(ctx, &models.InterviewReport{
		SessionID:       sess.ID,
		ConfidenceScore: 70,
		GrammarScore:    80,
		RelevanceScore:  75,
		OverallScore:    76,
		Feedback:        models.ReportFeedback{Strengths: []string{"clear"}, Summary: "good"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ID)
	assert.NotNil(t, rep.Feedback.Improvements)

	got, err := s.GetReportBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rep.ID, got.ID)
	assert.Equal(t, []string{"clear"}, got.Feedback.Strengths)
	assert.Equal(t, "good", got.Feedback.Summary)

	byID, err := s.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, 76, byID.OverallScore)

	_, err = s.CreateReport(ctx, &models.InterviewReport{SessionID: sess.ID})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
