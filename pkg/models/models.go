package models

import "time"

// Domain models matching the database schema in db/migrations/0001_init.sql.
// JSON names follow the web client contract (camelCase).

type User struct {
	ID           string `json:"id" db:"id"`
	Username     string `json:"username" db:"username" validate:"required,max=64"`
	PasswordHash string `json:"-" db:"password_hash"`
}

type Resume struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"userId" db:"user_id"`
	Title     string        `json:"title" db:"title"`
	Content   ResumeContent `json:"content" db:"content"`
	ATSScore  int           `json:"atsScore" db:"ats_score"`
	Template  string        `json:"template" db:"template"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// ResumeContent is the structured document stored as JSON in resumes.content.
type ResumeContent struct {
	Basics     Basics       `json:"basics"`
	Experience []Experience `json:"experience" validate:"dive"`
	Skills     []string     `json:"skills"`
	Projects   []Project    `json:"projects,omitempty" validate:"omitempty,dive"`
	Education  []Education  `json:"education,omitempty" validate:"omitempty,dive"`
}

type Basics struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Summary string `json:"summary"`
}

type Experience struct {
	Company     string `json:"company" validate:"required"`
	Position    string `json:"position" validate:"required"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description"`
}

type Project struct {
	Name         string `json:"name" validate:"required"`
	Technologies string `json:"technologies"`
	Description  string `json:"description"`
}

type Education struct {
	Institution string `json:"institution" validate:"required"`
	Degree      string `json:"degree"`
	Year        string `json:"year"`
}

// Normalize replaces nil lists with empty ones so the document always
// serializes the same way.
func (c *ResumeContent) Normalize() {
	if c.Experience == nil {
		c.Experience = []Experience{}
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
}

type QuestionType string

const (
	QuestionTypeTechnical  QuestionType = "technical"
	QuestionTypeBehavioral QuestionType = "behavioral"
	QuestionTypeMixed      QuestionType = "mixed"
)

// Valid reports whether t is a known question type. "hr" is accepted as an
// alias of behavioral.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeTechnical, QuestionTypeBehavioral, QuestionTypeMixed, "hr":
		return true
	}
	return false
}

type SessionStatus string

const (
	StatusSetup      SessionStatus = "setup"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Rank orders statuses along the session lifecycle. Unknown statuses rank -1.
func (s SessionStatus) Rank() int {
	switch s {
	case StatusSetup:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

type InterviewSession struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"userId" db:"user_id"`
	JobRole      string        `json:"jobRole" db:"job_role"`
	QuestionType QuestionType  `json:"questionType" db:"question_type"`
	Status       SessionStatus `json:"status" db:"status"`
	StartedAt    *time.Time    `json:"startedAt" db:"started_at"`
	CompletedAt  *time.Time    `json:"completedAt" db:"completed_at"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
}

type InterviewQuestion struct {
	ID           string    `json:"id" db:"id"`
	SessionID    string    `json:"sessionId" db:"session_id"`
	QuestionText string    `json:"questionText" db:"question_text"`
	Answer       *string   `json:"answer" db:"answer"`
	Score        *int      `json:"score" db:"score"`
	Order        int       `json:"order" db:"position"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Answered reports whether the question has both an answer and a score.
func (q InterviewQuestion) Answered() bool {
	return q.Answer != nil && *q.Answer != "" && q.Score != nil
}

type InterviewReport struct {
	ID              string         `json:"id" db:"id"`
	SessionID       string         `json:"sessionId" db:"session_id"`
	ConfidenceScore int            `json:"confidenceScore" db:"confidence_score"`
	GrammarScore    int            `json:"grammarScore" db:"grammar_score"`
	RelevanceScore  int            `json:"relevanceScore" db:"relevance_score"`
	OverallScore    int            `json:"overallScore" db:"overall_score"`
	Feedback        ReportFeedback `json:"feedback" db:"feedback"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
}

type ReportFeedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}
