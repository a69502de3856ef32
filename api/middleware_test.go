package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/careerprep/api"
	"github.com/garnizeh/careerprep/internal/auth"
	"github.com/garnizeh/careerprep/pkg/repository/memory"
)

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.LoggingMiddleware(next)
	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if string(b) != "ok" {
		t.Fatalf("unexpected body: %q", string(b))
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	var seen string
	handler := api.CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.CorrelationIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	got := w.Result().Header.Get(api.HeaderCorrelationID)
	if got == "" || got != seen {
		t.Fatalf("expected generated id echoed and in context, header=%q ctx=%q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.HeaderCorrelationID, "abc-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Result().Header.Get(api.HeaderCorrelationID); got != "abc-123" || seen != "abc-123" {
		t.Fatalf("expected incoming id reused, header=%q ctx=%q", got, seen)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := api.CORSMiddleware("")(next)

	// OPTIONS should return 204 and not call next
	reqOpt := httptest.NewRequest(http.MethodOptions, "/cors", nil)
	wOpt := httptest.NewRecorder()
	handler.ServeHTTP(wOpt, reqOpt)
	resOpt := wOpt.Result()
	defer resOpt.Body.Close()
	if resOpt.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS, got %d", resOpt.StatusCode)
	}
	if got := resOpt.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS header set, got %q", got)
	}

	// GET should pass through and set headers
	reqGet := httptest.NewRequest(http.MethodGet, "/cors", nil)
	wGet := httptest.NewRecorder()
	api.CORSMiddleware("https://app.example.com")(next).ServeHTTP(wGet, reqGet)
	resGet := wGet.Result()
	defer resGet.Body.Close()
	if resGet.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for GET, got %d", resGet.StatusCode)
	}
	if got := resGet.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") {
		t.Fatalf("expected Allow-Methods to include PATCH, got %q", got)
	}
	if got := resGet.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected configured origin, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	// handler that panics
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := api.RecoveryMiddleware(pan)
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic recovery, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "Internal server error") || strings.Contains(string(b), "boom") {
		t.Fatalf("unexpected body for recovery: %s", string(b))
	}

	// normal handler should pass through
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler2 := api.RecoveryMiddleware(ok)
	w2 := httptest.NewRecorder()
	handler2.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w2.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for normal path, got %d", w2.Result().StatusCode)
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := auth.NewService(memory.New(), "s3cr3t", time.Hour)
	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = api.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := api.JWTAuthMiddleware(svc)(next)

	other := auth.NewService(memory.New(), "other", time.Hour)
	foreign, err := other.IssueToken("user-1")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	cases := []struct {
		name       string
		authHeader string
	}{
		{name: "MissingHeader", authHeader: ""},
		{name: "EmptyBearer", authHeader: "Bearer "},
		{name: "WrongScheme", authHeader: "Basic abc"},
		{name: "BadToken", authHeader: "Bearer bad.token.here"},
		{name: "ForeignSecret", authHeader: "Bearer " + foreign},
	}

	var firstBody string
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/jwt", nil)
			if c.authHeader != "" {
				req.Header.Set("Authorization", c.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Fatalf("%s: want 401 got %d", c.name, w.Result().StatusCode)
			}
			body := w.Body.String()
			if firstBody == "" {
				firstBody = body
			} else if body != firstBody {
				t.Fatalf("%s: expected identical 401 bodies, got %q vs %q", c.name, body, firstBody)
			}
		})
	}

	// now test valid token
	tokStr, err := svc.IssueToken("user-1")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/jwt", nil)
	req.Header.Set("Authorization", "bearer "+tokStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("valid token: expected 200 got %d", w.Result().StatusCode)
	}
	if gotID != "user-1" {
		t.Fatalf("expected user id in context, got %q", gotID)
	}
}

func TestOptionalJWTMiddleware(t *testing.T) {
	svc := auth.NewService(memory.New(), "s3cr3t", time.Hour)
	var gotID string
	var authed bool
	handler := api.OptionalJWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, authed = api.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tok, err := svc.IssueToken("user-9")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	cases := []struct {
		name     string
		header   string
		wantAuth bool
	}{
		{name: "NoHeader", header: "", wantAuth: false},
		{name: "InvalidToken", header: "Bearer nope", wantAuth: false},
		{name: "ValidToken", header: "Bearer " + tok, wantAuth: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/preview", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Result().StatusCode != http.StatusOK {
				t.Fatalf("optional auth must never reject, got %d", w.Result().StatusCode)
			}
			if authed != c.wantAuth {
				t.Fatalf("want authed=%v got %v (id %q)", c.wantAuth, authed, gotID)
			}
		})
	}
	if gotID != "user-9" {
		t.Fatalf("expected user id from valid token, got %q", gotID)
	}
}
