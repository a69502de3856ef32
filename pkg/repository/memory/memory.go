// Package memory provides an in-process repository.Store. It backs the
// `storage: memory` mode and serves as the test double for service and
// handler tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

var _ repository.Store = (*Store)(nil)

// Store keeps every entity in maps guarded by one mutex. Values handed out
// are copies; callers never alias stored state.
type Store struct {
	mu  sync.Mutex
	seq uint64
	now func() time.Time

	users     map[string]models.User
	resumes   map[string]entry[models.Resume]
	sessions  map[string]entry[models.InterviewSession]
	questions map[string]models.InterviewQuestion
	reports   map[string]models.InterviewReport

	// failures injects an error for the named method, once.
	failures map[string]error
}

// entry pairs a row with a write sequence used to order listings.
type entry[T any] struct {
	v   T
	rev uint64
}

func New() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		users:     map[string]models.User{},
		resumes:   map[string]entry[models.Resume]{},
		sessions:  map[string]entry[models.InterviewSession]{},
		questions: map[string]models.InterviewQuestion{},
		reports:   map[string]models.InterviewReport{},
		failures:  map[string]error{},
	}
}

// FailNext makes the next call of the named method (e.g. "CreateReport")
// return err.
func (s *Store) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *Store) injected(method string) error {
	err, ok := s.failures[method]
	if ok {
		delete(s.failures, method)
	}
	return err
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, fmt.Errorf("user is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateUser"); err != nil {
		return nil, err
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return nil, repository.ErrDuplicate
		}
	}
	out := *u
	out.ID = uuid.NewString()
	s.users[out.ID] = out
	return &out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

// Resumes

func (s *Store) CreateResume(ctx context.Context, r *models.Resume) (*models.Resume, error) {
	if r == nil {
		return nil, fmt.Errorf("resume is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateResume"); err != nil {
		return nil, err
	}
	out := cloneResume(*r)
	out.ID = uuid.NewString()
	out.Content.Normalize()
	if out.Template == "" {
		out.Template = "modern"
	}
	ts := s.now()
	out.CreatedAt, out.UpdatedAt = ts, ts
	s.resumes[out.ID] = entry[models.Resume]{v: out, rev: s.next()}
	res := cloneResume(out)
	return &res, nil
}

func (s *Store) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.resumes[id]
	if !ok {
		return nil, nil
	}
	res := cloneResume(e.v)
	return &res, nil
}

func (s *Store) ListResumesByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ListResumesByUser"); err != nil {
		return nil, err
	}
	var es []entry[models.Resume]
	for _, e := range s.resumes {
		if e.v.UserID == userID {
			es = append(es, e)
		}
	}
	sort.Slice(es, func(i, j int) bool { return es[i].rev > es[j].rev })
	out := make([]models.Resume, 0, len(es))
	for _, e := range es {
		out = append(out, cloneResume(e.v))
	}
	return out, nil
}

func (s *Store) UpdateResume(ctx context.Context, id string, p repository.ResumePatch) (*models.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("UpdateResume"); err != nil {
		return nil, err
	}
	e, ok := s.resumes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cur := e.v
	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.Content != nil {
		cur.Content = cloneContent(*p.Content)
		cur.Content.Normalize()
	}
	if p.Template != nil {
		cur.Template = *p.Template
	}
	if p.ATSScore != nil {
		cur.ATSScore = *p.ATSScore
	}
	cur.UpdatedAt = s.now()
	s.resumes[id] = entry[models.Resume]{v: cur, rev: s.next()}
	res := cloneResume(cur)
	return &res, nil
}

func (s *Store) DeleteResume(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resumes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.resumes, id)
	return nil
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, in *models.InterviewSession) (*models.InterviewSession, error) {
	if in == nil {
		return nil, fmt.Errorf("session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateSession"); err != nil {
		return nil, err
	}
	out := *in
	out.ID = uuid.NewString()
	out.Status = models.StatusSetup
	out.StartedAt, out.CompletedAt = nil, nil
	out.CreatedAt = s.now()
	s.sessions[out.ID] = entry[models.InterviewSession]{v: out, rev: s.next()}
	return &out, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	out := cloneSession(e.v)
	return &out, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var es []entry[models.InterviewSession]
	for _, e := range s.sessions {
		if e.v.UserID == userID {
			es = append(es, e)
		}
	}
	// rev is fixed at creation, so this is newest-created first.
	sort.Slice(es, func(i, j int) bool { return es[i].rev > es[j].rev })
	out := make([]models.InterviewSession, 0, len(es))
	for _, e := range es {
		out = append(out, cloneSession(e.v))
	}
	return out, nil
}

func (s *Store) UpdateSession(ctx context.Context, id string, p repository.SessionPatch) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cur := e.v
	if p.JobRole != nil {
		cur.JobRole = *p.JobRole
	}
	if p.QuestionType != nil {
		cur.QuestionType = *p.QuestionType
	}
	if p.Status != nil && *p.Status != cur.Status {
		ts := s.now()
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
	e.v = cur
	s.sessions[id] = e
	out := cloneSession(cur)
	return &out, nil
}

func (s *Store) StartSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.v.Status == models.StatusSetup {
		ts := s.now()
		e.v.Status = models.StatusInProgress
		e.v.StartedAt = &ts
		s.sessions[id] = e
	}
	out := cloneSession(e.v)
	return &out, nil
}

func (s *Store) CompleteSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ts := s.now()
	e.v.Status = models.StatusCompleted
	e.v.CompletedAt = &ts
	if e.v.StartedAt == nil {
		started := ts
		e.v.StartedAt = &started
	}
	s.sessions[id] = e
	out := cloneSession(e.v)
	return &out, nil
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error) {
	if q == nil {
		return nil, fmt.Errorf("question is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateQuestion"); err != nil {
		return nil, err
	}
	for _, existing := range s.questions {
		if existing.SessionID == q.SessionID && existing.Order == q.Order {
			return nil, repository.ErrDuplicate
		}
	}
	out := *q
	out.ID = uuid.NewString()
	out.Answer, out.Score = nil, nil
	out.CreatedAt = s.now()
	s.questions[out.ID] = out
	return &out, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, nil
	}
	out := cloneQuestion(q)
	return &out, nil
}

func (s *Store) ListQuestionsBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.InterviewQuestion{}
	for _, q := range s.questions {
		if q.SessionID == sessionID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) AnswerQuestion(ctx context.Context, id, answer string, score int) (*models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("AnswerQuestion"); err != nil {
		return nil, err
	}
	q, ok := s.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	q.Answer = &answer
	q.Score = &score
	s.questions[id] = q
	out := cloneQuestion(q)
	return &out, nil
}

// Reports

func (s *Store) CreateReport(ctx context.Context, r *models.InterviewReport) (*models.InterviewReport, error) {
	if r == nil {
		return nil, fmt.Errorf("report is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateReport"); err != nil {
		return nil, err
	}
	for _, existing := range s.reports {
		if existing.SessionID == r.SessionID {
			return nil, repository.ErrDuplicate
		}
	}
	out := cloneReport(*r)
	out.ID = uuid.NewString()
	out.CreatedAt = s.now()
	if out.Feedback.Strengths == nil {
		out.Feedback.Strengths = []string{}
	}
	if out.Feedback.Improvements == nil {
		out.Feedback.Improvements = []string{}
	}
	s.reports[out.ID] = out
	res := cloneReport(out)
	return &res, nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.InterviewReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	out := cloneReport(r)
	return &out, nil
}

func (s *Store) GetReportBySession(ctx context.Context, sessionID string) (*models.InterviewReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.SessionID == sessionID {
			out := cloneReport(r)
			return &out, nil
		}
	}
	return nil, nil
}

func cloneContent(c models.ResumeContent) models.ResumeContent {
	// The document is plain JSON data, so a round trip is a faithful deep copy.
	b, err := json.Marshal(c)
	if err != nil {
		return c
	}
	var out models.ResumeContent
	if err := json.Unmarshal(b, &out); err != nil {
		return c
	}
	return out
}

func cloneResume(r models.Resume) models.Resume {
	r.Content = cloneContent(r.Content)
	return r
}

func cloneSession(s models.InterviewSession) models.InterviewSession {
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

func cloneQuestion(q models.InterviewQuestion) models.InterviewQuestion {
	if q.Answer != nil {
		a := *q.Answer
		q.Answer = &a
	}
	if q.Score != nil {
		v := *q.Score
		q.Score = &v
	}
	return q
}

func cloneReport(r models.InterviewReport) models.InterviewReport {
	r.Feedback.Strengths = append([]string(nil), r.Feedback.Strengths...)
	r.Feedback.Improvements = append([]string(nil), r.Feedback.Improvements...)
	if r.Feedback.Strengths == nil {
		r.Feedback.Strengths = []string{}
	}
	if r.Feedback.Improvements == nil {
		r.Feedback.Improvements = []string{}
	}
	return r
}
