package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/careerprep/api"
	"github.com/garnizeh/careerprep/internal/ai"
	"github.com/garnizeh/careerprep/internal/auth"
	"github.com/garnizeh/careerprep/internal/interview"
	"github.com/garnizeh/careerprep/internal/metrics"
	"github.com/garnizeh/careerprep/internal/resume"
	"github.com/garnizeh/careerprep/pkg/repository/memory"
)

// scriptedGen answers each model operation with a canned reply chosen by a
// phrase of its system prompt.
type scriptedGen struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   int
}

func (g *scriptedGen) GenerateJSON(_ context.Context, system, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	for phrase, reply := range g.replies {
		if strings.Contains(system, phrase) {
			return reply, nil
		}
	}
	return "", io.ErrUnexpectedEOF
}

func (g *scriptedGen) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

const (
	analyzeReply   = `{"score": 78, "keywords": ["go"], "suggestions": ["add metrics"], "strengths": ["concise"], "weaknesses": []}`
	optimizeReply  = `[{"section":"summary","original":"old","optimized":"Sharper summary","improvement":"clearer"},{"section":"skills","optimized":"dropped"}]`
	questionsReply = "```json\n{\"questions\": [\"Q1\", \"Q2\", \"Q3\"]}\n```"
	evaluateReply  = `{"score": 66, "strengths": ["clear"], "improvements": ["detail"], "feedback": "solid"}`
	reportReply    = `{"confidenceScore": 70, "grammarScore": 80, "relevanceScore": 75, "overallScore": 74, "feedback": {"strengths": ["a"], "improvements": ["b"], "summary": "good"}}`
)

func defaultReplies() map[string]string {
	return map[string]string{
		"ATS (Applicant Tracking System) analyzer": analyzeReply,
		"expert resume writer":                     optimizeReply,
		"technical recruiter":                      questionsReply,
		"constructive, actionable feedback":        evaluateReply,
		"expert interview coach and evaluator":     reportReply,
	}
}

type testEnv struct {
	handler http.Handler
	gen     *scriptedGen
	store   *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api.SetLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	store := memory.New()
	gen := &scriptedGen{replies: defaultReplies()}
	m := metrics.New()
	engine, err := ai.NewEngine(gen, ai.WithTimeout(5*time.Second), ai.WithObserver(m.ObserveLLM))
	require.NoError(t, err)

	router := api.SetupRoutes(
		api.RouterConfig{Version: "test", BuildTime: "now", CORSOrigin: "*"},
		api.Services{
			Auth:      auth.NewService(store, "testsecret", time.Hour, auth.WithBcryptCost(bcrypt.MinCost)),
			Resumes:   resume.NewService(store, engine),
			Interview: interview.NewService(store, engine),
			Metrics:   m,
		},
	)
	return &testEnv{handler: router, gen: gen, store: store}
}

// do sends a request and returns the status and raw body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte, http.Header) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out, res.Header
}

// doJSON sends a request, checks the status and decodes the body into out.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()
	status, raw, _ := e.do(t, method, path, token, body)
	require.Equal(t, wantStatus, status, "body: %s", raw)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
}

type authResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (e *testEnv) register(t *testing.T, username, password string) authResult {
	t.Helper()
	var res authResult
	e.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": username, "password": password}, http.StatusCreated, &res)
	return res
}

type errorResponse struct {
	Message string `json:"message"`
	Fields  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
}
