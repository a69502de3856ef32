package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerprep/internal/auth"
	"github.com/garnizeh/careerprep/internal/interview"
	"github.com/garnizeh/careerprep/internal/metrics"
	"github.com/garnizeh/careerprep/internal/resume"
)

// Services bundles what the router serves.
type Services struct {
	Auth      *auth.Service
	Resumes   *resume.Service
	Interview *interview.Service
	Metrics   *metrics.Metrics
	Health    map[string]HealthCheck
}

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	Version    string
	BuildTime  string
	CORSOrigin string
}

func SetupRoutes(cfg RouterConfig, svc Services) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method not allowed"})
	})

	// Middleware chain
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware)
	if svc.Metrics != nil {
		r.Use(svc.Metrics.Middleware)
	}
	r.Use(CORSMiddleware(cfg.CORSOrigin))
	r.Use(RecoveryMiddleware)

	// Preflight requests match here so the middleware chain runs for them.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Create handlers
	systemHandler := NewSystemHandler(svc.Health)
	authHandler := NewAuthHandler(svc.Auth)
	resumeHandler := NewResumeHandler(svc.Resumes)
	interviewHandler := NewInterviewHandler(svc.Interview)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(cfg.Version, cfg.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	if svc.Metrics != nil {
		r.Handle("/metrics", svc.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.Handle("/latex/preview", OptionalJWTMiddleware(svc.Auth)(http.HandlerFunc(resumeHandler.Preview))).Methods("POST")

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(JWTAuthMiddleware(svc.Auth))

	protected.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	protected.HandleFunc("/resumes", resumeHandler.Create).Methods("POST")
	protected.HandleFunc("/resumes", resumeHandler.List).Methods("GET")
	protected.HandleFunc("/resumes/{id}", resumeHandler.Get).Methods("GET")
	protected.HandleFunc("/resumes/{id}", resumeHandler.Update).Methods("PATCH")
	protected.HandleFunc("/resumes/{id}", resumeHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/resumes/{id}/analyze", resumeHandler.Analyze).Methods("POST")
	protected.HandleFunc("/resumes/{id}/optimize", resumeHandler.Optimize).Methods("POST")
	protected.HandleFunc("/resumes/{id}/apply-optimization", resumeHandler.ApplyOptimization).Methods("POST")
	protected.HandleFunc("/resumes/{id}/latex", resumeHandler.LaTeX).Methods("GET")

	protected.HandleFunc("/interviews", interviewHandler.Create).Methods("POST")
	protected.HandleFunc("/interviews", interviewHandler.List).Methods("GET")
	protected.HandleFunc("/interviews/questions/{questionId}/answer", interviewHandler.Answer).Methods("POST")
	protected.HandleFunc("/interviews/{id}", interviewHandler.Get).Methods("GET")
	protected.HandleFunc("/interviews/{id}", interviewHandler.Update).Methods("PATCH")
	protected.HandleFunc("/interviews/{id}/generate-questions", interviewHandler.GenerateQuestions).Methods("POST")
	protected.HandleFunc("/interviews/{id}/questions", interviewHandler.ListQuestions).Methods("GET")
	protected.HandleFunc("/interviews/{id}/start", interviewHandler.Start).Methods("POST")
	protected.HandleFunc("/interviews/{id}/complete", interviewHandler.Complete).Methods("POST")
	protected.HandleFunc("/interviews/{id}/report", interviewHandler.GenerateReport).Methods("POST")
	protected.HandleFunc("/interviews/{id}/report", interviewHandler.GetReport).Methods("GET")

	return r
}
