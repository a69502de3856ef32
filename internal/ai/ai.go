// Package ai builds the prompts for the resume and interview operations,
// sends them through an llm.Generator and coerces the JSON replies into
// typed results.
package ai

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/careerprep/pkg/llm"
	"github.com/garnizeh/careerprep/pkg/models"
)

// ErrAIFailed wraps every transport, parse and shape failure.
var ErrAIFailed = errors.New("ai operation failed")

// QuestionCount is the number of questions requested per generation call.
const QuestionCount = 5

//go:embed prompts/*.tmpl
var promptFS embed.FS

// package-level logger for internal/ai; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger sets the logger used by internal/ai. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Observer receives the outcome of every model call.
type Observer func(op string, elapsed time.Duration, err error)

type ATSAnalysis struct {
	Score       int      `json:"score"`
	Keywords    []string `json:"keywords"`
	Suggestions []string `json:"suggestions"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

type Optimization struct {
	Section     string `json:"section"`
	Original    string `json:"original"`
	Optimized   string `json:"optimized"`
	Improvement string `json:"improvement"`
}

type Evaluation struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Feedback     string   `json:"feedback"`
}

// AnsweredQuestion is one scored exchange fed into the report prompt.
type AnsweredQuestion struct {
	Question string
	Answer   string
	Score    int
}

// Report carries the model's aggregate scores for a session.
type Report struct {
	ConfidenceScore int
	GrammarScore    int
	RelevanceScore  int
	OverallScore    int
	Feedback        models.ReportFeedback
}

// Engine wraps a Generator and provides the five model-backed operations.
type Engine struct {
	gen     llm.Generator
	loader  *Loader
	timeout time.Duration
	observe Observer
	prompts map[string]string
}

type Option func(*Engine)

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observe = o }
}

// NewEngine creates a new AI engine using the embedded prompts and schemas.
func NewEngine(gen llm.Generator, opts ...Option) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}

	loader, err := NewLoader(nil)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	prompts := make(map[string]string)
	entries, err := promptFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	for _, e := range entries {
		b, err := promptFS.ReadFile("prompts/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", e.Name(), err)
		}
		prompts[strings.TrimSuffix(e.Name(), ".tmpl")] = string(b)
	}

	e := &Engine{gen: gen, loader: loader, timeout: 60 * time.Second, prompts: prompts}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// call renders the named prompt pair, asks the model, and validates the JSON
// reply against the named schema. The returned bytes are the bare JSON value.
func (e *Engine) call(ctx context.Context, op, schema string, data any) (_ []byte, err error) {
	start := time.Now()
	defer func() {
		if e.observe != nil {
			e.observe(op, time.Since(start), err)
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrAIFailed, op, err)
		}
	}()

	prompt, err := llm.RenderTemplate(e.prompts[op], data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	system := strings.TrimSpace(e.prompts[op+".system"])

	ctxReq := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctxReq, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out, err := e.gen.GenerateJSON(ctxReq, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	j, err := extractJSON(out, schema == "optimizations")
	if err != nil {
		logger.Warn("ai: unparseable response", slog.String("op", op), slog.String("raw", out))
		return nil, err
	}
	if schema == "optimizations" && strings.HasPrefix(j, "[") {
		j = `{"optimizations":` + j + `}`
	}
	if !json.Valid([]byte(j)) {
		logger.Warn("ai: invalid JSON", slog.String("op", op), slog.String("raw", out))
		return nil, errors.New("response is not valid JSON")
	}
	if err := e.loader.Validate(ctxReq, schema, []byte(j)); err != nil {
		logger.Warn("ai: schema mismatch", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}

	logger.Debug("ai: call ok", slog.String("op", op), slog.Duration("latency", time.Since(start)))
	return []byte(j), nil
}

func decode(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: json unmarshal: %w", ErrAIFailed, err)
	}
	return nil
}

// AnalyzeResume scores the resume for ATS compatibility, optionally against a
// job description.
func (e *Engine) AnalyzeResume(ctx context.Context, content models.ResumeContent, jobDescription string) (*ATSAnalysis, error) {
	data := map[string]any{
		"Content":        content,
		"JobDescription": strings.TrimSpace(jobDescription),
		"Skills":         strings.Join(content.Skills, ", "),
	}
	b, err := e.call(ctx, "analyze", "analysis", data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Score       json.RawMessage `json:"score"`
		Keywords    json.RawMessage `json:"keywords"`
		Suggestions json.RawMessage `json:"suggestions"`
		Strengths   json.RawMessage `json:"strengths"`
		Weaknesses  json.RawMessage `json:"weaknesses"`
	}
	if err := decode(b, &raw); err != nil {
		return nil, err
	}

	return &ATSAnalysis{
		Score:       score(number(raw.Score)),
		Keywords:    stringList(raw.Keywords),
		Suggestions: stringList(raw.Suggestions),
		Strengths:   stringList(raw.Strengths),
		Weaknesses:  stringList(raw.Weaknesses),
	}, nil
}

// OptimizeResume proposes rewrites of the summary and experience
// descriptions. Proposals addressing unknown or out-of-range sections are
// dropped.
func (e *Engine) OptimizeResume(ctx context.Context, content models.ResumeContent, targetRole string) ([]Optimization, error) {
	data := map[string]any{
		"Content":    content,
		"TargetRole": strings.TrimSpace(targetRole),
	}
	b, err := e.call(ctx, "optimize", "optimizations", data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Optimizations json.RawMessage `json:"optimizations"`
	}
	if err := decode(b, &raw); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw.Optimizations, &items); err != nil {
		items = nil
	}

	out := make([]Optimization, 0, len(items))
	for _, item := range items {
		var o struct {
			Section     json.RawMessage `json:"section"`
			Original    json.RawMessage `json:"original"`
			Optimized   json.RawMessage `json:"optimized"`
			Improvement json.RawMessage `json:"improvement"`
		}
		if err := json.Unmarshal(item, &o); err != nil {
			logger.Debug("ai: dropping non-object optimization")
			continue
		}
		section := strings.TrimSpace(text(o.Section))
		sec, err := models.ParseSection(section)
		if err != nil || !sec.Fits(content) {
			logger.Debug("ai: dropping optimization", slog.String("section", section))
			continue
		}
		original := text(o.Original)
		if original == "" {
			original = sec.Text(content)
		}
		out = append(out, Optimization{
			Section:     sec.String(),
			Original:    original,
			Optimized:   text(o.Optimized),
			Improvement: text(o.Improvement),
		})
	}
	return out, nil
}

// GenerateQuestions asks for QuestionCount interview questions for the role.
// Resume, when given, tailors the questions to the candidate.
func (e *Engine) GenerateQuestions(ctx context.Context, jobRole string, qtype models.QuestionType, resume *models.ResumeContent) ([]string, error) {
	data := map[string]any{
		"Count":        QuestionCount,
		"JobRole":      jobRole,
		"QuestionType": promptQuestionType(qtype),
		"Resume":       resume,
		"Skills":       "",
	}
	if resume != nil {
		data["Skills"] = strings.Join(resume.Skills, ", ")
	}
	b, err := e.call(ctx, "questions", "questions", data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := decode(b, &raw); err != nil {
		return nil, err
	}
	return stringList(raw.Questions), nil
}

func promptQuestionType(t models.QuestionType) string {
	switch t {
	case "hr":
		return string(models.QuestionTypeBehavioral)
	case "":
		return string(models.QuestionTypeMixed)
	}
	return string(t)
}

// EvaluateAnswer scores one answer in the context of the job role.
func (e *Engine) EvaluateAnswer(ctx context.Context, question, answer, jobRole string) (*Evaluation, error) {
	data := map[string]any{"Question": question, "Answer": answer, "JobRole": jobRole}
	b, err := e.call(ctx, "evaluate", "evaluation", data)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Score        json.RawMessage `json:"score"`
		Strengths    json.RawMessage `json:"strengths"`
		Improvements json.RawMessage `json:"improvements"`
		Feedback     json.RawMessage `json:"feedback"`
	}
	if err := decode(b, &raw); err != nil {
		return nil, err
	}

	return &Evaluation{
		Score:        score(number(raw.Score)),
		Strengths:    stringList(raw.Strengths),
		Improvements: stringList(raw.Improvements),
		Feedback:     text(raw.Feedback),
	}, nil
}

// GenerateReport aggregates the answered questions into session-level scores.
func (e *Engine) GenerateReport(ctx context.Context, jobRole string, answers []AnsweredQuestion) (*Report, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: report: no answered questions", ErrAIFailed)
	}

	type promptAnswer struct {
		N        int
		Question string
		Answer   string
		Score    int
	}
	items := make([]promptAnswer, len(answers))
	for i, a := range answers {
		items[i] = promptAnswer{N: i + 1, Question: a.Question, Answer: a.Answer, Score: a.Score}
	}

	b, err := e.call(ctx, "report", "report", map[string]any{"JobRole": jobRole, "Answers": items})
	if err != nil {
		return nil, err
	}

	var raw struct {
		ConfidenceScore json.RawMessage `json:"confidenceScore"`
		GrammarScore    json.RawMessage `json:"grammarScore"`
		RelevanceScore  json.RawMessage `json:"relevanceScore"`
		OverallScore    json.RawMessage `json:"overallScore"`
		Feedback        json.RawMessage `json:"feedback"`
	}
	if err := decode(b, &raw); err != nil {
		return nil, err
	}

	// A feedback value that is not an object leaves every part empty.
	var feedback struct {
		Strengths    json.RawMessage `json:"strengths"`
		Improvements json.RawMessage `json:"improvements"`
		Summary      json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(raw.Feedback, &feedback); err != nil {
		logger.Debug("ai: report feedback is not an object")
	}

	return &Report{
		ConfidenceScore: score(number(raw.ConfidenceScore)),
		GrammarScore:    score(number(raw.GrammarScore)),
		RelevanceScore:  score(number(raw.RelevanceScore)),
		OverallScore:    score(number(raw.OverallScore)),
		Feedback: models.ReportFeedback{
			Strengths:    stringList(feedback.Strengths),
			Improvements: stringList(feedback.Improvements),
			Summary:      text(feedback.Summary),
		},
	}, nil
}
