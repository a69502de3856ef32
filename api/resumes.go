package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerprep/internal/resume"
	"github.com/garnizeh/careerprep/pkg/models"
)

type ResumeHandler struct {
	svc *resume.Service
}

func NewResumeHandler(svc *resume.Service) *ResumeHandler {
	return &ResumeHandler{svc: svc}
}

type analyzeRequest struct {
	JobDescription string `json:"jobDescription"`
}

type optimizeRequest struct {
	TargetRole string `json:"targetRole"`
}

type previewRequest struct {
	Content  models.ResumeContent `json:"content"`
	Template string               `json:"template"`
}

func (h *ResumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req resume.CreateInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Get(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ResumeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req resume.UpdateInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Update(r.Context(), currentUser(r), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), currentUser(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ResumeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	analysis, err := h.svc.Analyze(r.Context(), currentUser(r), mux.Vars(r)["id"], req.JobDescription)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *ResumeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := h.svc.Optimize(r.Context(), currentUser(r), mux.Vars(r)["id"], req.TargetRole)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"optimizations": opts})
}

func (h *ResumeHandler) ApplyOptimization(w http.ResponseWriter, r *http.Request) {
	var req resume.ApplyInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.ApplyOptimization(r.Context(), currentUser(r), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ResumeHandler) LaTeX(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.ExportLaTeX(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(exp.Source))
}

// Preview renders unsaved content. Authentication is optional.
func (h *ResumeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	src, err := h.svc.Preview(req.Content, req.Template)
	if err != nil {
		writeError(w, r, err)
		return
	}
	uid, _ := UserIDFromContext(r.Context())
	logger.Debug("latex preview", slog.String("user_id", uid), slog.String("template", req.Template))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(src))
}
