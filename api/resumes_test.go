package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/careerprep/internal/ai"
	"github.com/garnizeh/careerprep/pkg/models"
)

func TestResumeScenario_AnalyzePersistsScore(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "pw1")

	var login authResult
	env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "pw1"}, http.StatusOK, &login)

	var created models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", login.Token, map[string]any{
		"title":   "My Resume",
		"content": map[string]any{"basics": map[string]string{"name": "Alice"}, "experience": []any{}, "skills": []string{}},
	}, http.StatusCreated, &created)
	assert.Equal(t, 0, created.ATSScore)
	assert.Equal(t, "modern", created.Template)

	var analysis struct {
		Score       int      `json:"score"`
		Keywords    []string `json:"keywords"`
		Suggestions []string `json:"suggestions"`
		Weaknesses  []string `json:"weaknesses"`
	}
	env.doJSON(t, http.MethodPost, "/api/resumes/"+created.ID+"/analyze", login.Token, map[string]string{"jobDescription": "Go developer"}, http.StatusOK, &analysis)
	assert.Equal(t, 78, analysis.Score)
	assert.Equal(t, []string{"go"}, analysis.Keywords)
	assert.NotNil(t, analysis.Weaknesses)

	var stored models.Resume
	env.doJSON(t, http.MethodGet, "/api/resumes/"+created.ID, login.Token, nil, http.StatusOK, &stored)
	assert.Equal(t, analysis.Score, stored.ATSScore)
}

func TestResumeCRUD(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")

	var first, second models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{"title": "First"}, http.StatusCreated, &first)
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{"title": "Second", "template": "classic"}, http.StatusCreated, &second)

	var list []models.Resume
	env.doJSON(t, http.MethodGet, "/api/resumes", alice.Token, nil, http.StatusOK, &list)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	var patched models.Resume
	env.doJSON(t, http.MethodPatch, "/api/resumes/"+first.ID, alice.Token, map[string]any{"title": "First v2", "atsScore": 99}, http.StatusOK, &patched)
	assert.Equal(t, "First v2", patched.Title)
	assert.Equal(t, 0, patched.ATSScore, "clients cannot write the score")

	env.doJSON(t, http.MethodGet, "/api/resumes", alice.Token, nil, http.StatusOK, &list)
	assert.Equal(t, first.ID, list[0].ID)

	var deleted map[string]bool
	env.doJSON(t, http.MethodDelete, "/api/resumes/"+first.ID, alice.Token, nil, http.StatusOK, &deleted)
	assert.True(t, deleted["success"])

	status, _, _ := env.do(t, http.MethodGet, "/api/resumes/"+first.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var verr errorResponse
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{
		"title":   "",
		"content": map[string]any{"experience": []map[string]string{{"company": "Acme"}}},
	}, http.StatusBadRequest, &verr)
	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"title", "content.experience[0].position"}, fields)
}

func TestResumeOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	bob := env.register(t, "bob", "pw2")

	var r models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{"title": "Private"}, http.StatusCreated, &r)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/resumes/" + r.ID},
		{http.MethodPatch, "/api/resumes/" + r.ID},
		{http.MethodDelete, "/api/resumes/" + r.ID},
		{http.MethodPost, "/api/resumes/" + r.ID + "/analyze"},
		{http.MethodPost, "/api/resumes/" + r.ID + "/optimize"},
		{http.MethodPost, "/api/resumes/" + r.ID + "/apply-optimization"},
		{http.MethodGet, "/api/resumes/" + r.ID + "/latex"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			var res errorResponse
			body := map[string]string{"section": "summary", "title": "hijack"}
			env.doJSON(t, p.method, p.path, bob.Token, body, http.StatusForbidden, &res)
			assert.Equal(t, "Access denied", res.Message)
		})
	}
	assert.Zero(t, env.gen.calls, "no model call for foreign resumes")

	var list []models.Resume
	env.doJSON(t, http.MethodGet, "/api/resumes", bob.Token, nil, http.StatusOK, &list)
	assert.Empty(t, list)

	status, _, _ := env.do(t, http.MethodGet, "/api/resumes/does-not-exist", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResumeOptimizeAndApply(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")

	var r models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{
		"title": "CV",
		"content": map[string]any{
			"basics":     map[string]string{"name": "Alice", "summary": "old"},
			"experience": []map[string]string{{"company": "Acme", "position": "Dev", "description": "did stuff"}},
			"skills":     []string{"Go"},
		},
	}, http.StatusCreated, &r)

	var opt struct {
		Optimizations []struct {
			Section   string `json:"section"`
			Optimized string `json:"optimized"`
		} `json:"optimizations"`
	}
	env.doJSON(t, http.MethodPost, "/api/resumes/"+r.ID+"/optimize", alice.Token, nil, http.StatusOK, &opt)
	require.Len(t, opt.Optimizations, 1, "unknown sections are dropped")
	assert.Equal(t, "summary", opt.Optimizations[0].Section)

	var applied models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes/"+r.ID+"/apply-optimization", alice.Token,
		map[string]string{"section": "experience-0", "optimizedText": "- Shipped X\n- Cut Y by 20%"}, http.StatusOK, &applied)
	assert.Equal(t, "- Shipped X\n- Cut Y by 20%", applied.Content.Experience[0].Description)

	var verr errorResponse
	env.doJSON(t, http.MethodPost, "/api/resumes/"+r.ID+"/apply-optimization", alice.Token,
		map[string]string{"section": "experience-3", "optimizedText": "x"}, http.StatusBadRequest, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "section", verr.Fields[0].Field)

	status, raw, hdr := env.do(t, http.MethodGet, "/api/resumes/"+r.ID+"/latex", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `attachment; filename="CV.tex"`, hdr.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(hdr.Get("Content-Type"), "text/plain"))
	assert.Contains(t, string(raw), `\item Cut Y by 20\%`)
}

func TestResumeAnalyze_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	var r models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{"title": "CV"}, http.StatusCreated, &r)

	env.gen.fail(errors.New("dial tcp 127.0.0.1:11434: connection refused"))
	status, raw, _ := env.do(t, http.MethodPost, "/api/resumes/"+r.ID+"/analyze", alice.Token, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"message":"AI analysis failed. Please try again."}`, string(raw))

	var stored models.Resume
	env.doJSON(t, http.MethodGet, "/api/resumes/"+r.ID, alice.Token, nil, http.StatusOK, &stored)
	assert.Equal(t, 0, stored.ATSScore)
}

func TestResumeAnalyze_MalformedModelReply(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	var r models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{"title": "CV"}, http.StatusCreated, &r)

	env.gen.replies["ATS (Applicant Tracking System) analyzer"] = `The resume looks fine to me.`
	var res errorResponse
	env.doJSON(t, http.MethodPost, "/api/resumes/"+r.ID+"/analyze", alice.Token, nil, http.StatusInternalServerError, &res)
	assert.Equal(t, "AI analysis failed. Please try again.", res.Message)
}

func TestResumeAnalyze_MistypedFieldsAreCoerced(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	var r models.Resume
	env.doJSON(t, http.MethodPost, "/api/resumes", alice.Token, map[string]any{"title": "CV"}, http.StatusCreated, &r)

	env.gen.replies["ATS (Applicant Tracking System) analyzer"] = `{"score": "64", "keywords": {"found": ["Go"], "missing": ["K8s"]}, "strengths": "Clear layout", "weaknesses": ["Short", 3]}`
	var analysis ai.ATSAnalysis
	env.doJSON(t, http.MethodPost, "/api/resumes/"+r.ID+"/analyze", alice.Token, nil, http.StatusOK, &analysis)
	assert.Equal(t, 64, analysis.Score)
	assert.Equal(t, []string{}, analysis.Keywords)
	assert.Equal(t, []string{}, analysis.Strengths)
	assert.Equal(t, []string{"Short"}, analysis.Weaknesses)

	var stored models.Resume
	env.doJSON(t, http.MethodGet, "/api/resumes/"+r.ID, alice.Token, nil, http.StatusOK, &stored)
	assert.Equal(t, 64, stored.ATSScore)
}

func TestLatexPreview_OptionalAuth(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "pw1")
	body := map[string]any{
		"template": "classic",
		"content":  map[string]any{"basics": map[string]string{"name": "R&D"}, "skills": []string{"C#"}},
	}

	for _, token := range []string{"", alice.Token, "broken"} {
		status, raw, _ := env.do(t, http.MethodPost, "/api/latex/preview", token, body)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(raw), `R\&D`)
		assert.Contains(t, string(raw), `C\#`)
	}
}
