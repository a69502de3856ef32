package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/careerprep/internal/interview"
)

type InterviewHandler struct {
	svc *interview.Service
}

func NewInterviewHandler(svc *interview.Service) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

func (h *InterviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req interview.CreateInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *InterviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req interview.UpdateInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.Update(r.Context(), currentUser(r), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *InterviewHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req interview.GenerateInput
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	qs, err := h.svc.GenerateQuestions(r.Context(), currentUser(r), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (h *InterviewHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.svc.ListQuestions(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Start(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *InterviewHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Complete(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *InterviewHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req interview.AnswerInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.SubmitAnswer(r.Context(), currentUser(r), mux.Vars(r)["questionId"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *InterviewHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.GenerateReport(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *InterviewHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.GetReport(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
