package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes_System(t *testing.T) {
	env := newTestEnv(t)

	var health map[string]any
	env.doJSON(t, http.MethodGet, "/health", "", nil, http.StatusOK, &health)
	assert.Equal(t, "ok", health["status"])

	var version map[string]string
	env.doJSON(t, http.MethodGet, "/version", "", nil, http.StatusOK, &version)
	assert.Equal(t, "test", version["version"])

	status, _, hdr := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, hdr.Get("X-Correlation-ID"))
}

func TestRoutes_ProtectedRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []struct{ method, path string }{
		{http.MethodGet, "/api/resumes"},
		{http.MethodPost, "/api/resumes"},
		{http.MethodGet, "/api/interviews"},
		{http.MethodPost, "/api/interviews/x/report"},
		{http.MethodPost, "/api/interviews/questions/x/answer"},
	} {
		var res errorResponse
		env.doJSON(t, p.method, p.path, "", nil, http.StatusUnauthorized, &res)
		assert.Equal(t, "Authentication required", res.Message, p.path)
	}
}

func TestRoutes_PreflightAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	status, _, hdr := env.do(t, http.MethodOptions, "/api/resumes", "", nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "*", hdr.Get("Access-Control-Allow-Origin"))

	var res errorResponse
	env.doJSON(t, http.MethodGet, "/nowhere", "", nil, http.StatusNotFound, &res)
	assert.Equal(t, "Not found", res.Message)
}

func TestRoutes_MetricsExposeTraffic(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	env.doJSON(t, http.MethodPost, "/api/interviews", alice.Token,
		map[string]string{"jobRole": "Dev", "questionType": "technical"}, http.StatusCreated, nil)

	status, raw, _ := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	body := string(raw)
	assert.Contains(t, body, `careerprep_http_requests_total{method="POST",path="/api/auth/register",status="201"} 1`)
	assert.Contains(t, body, `path="/api/interviews"`)
}

func TestRoutes_LLMMetrics(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	var sess struct {
		ID string `json:"id"`
	}
	env.doJSON(t, http.MethodPost, "/api/interviews", alice.Token,
		map[string]string{"jobRole": "Dev", "questionType": "technical"}, http.StatusCreated, &sess)
	env.doJSON(t, http.MethodPost, "/api/interviews/"+sess.ID+"/generate-questions", alice.Token, nil, http.StatusOK, nil)

	_, raw, _ := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, string(raw), `careerprep_llm_calls_total{operation="questions",outcome="ok"} 1`)
}
