package funnel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"scentquiz/internal/app/apiresp"
	"scentquiz/internal/catalog"
	"scentquiz/internal/quiz"
	"scentquiz/internal/zodiac"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	svc funnelService
}

type funnelService interface {
	StartSession(ctx context.Context, in Identity) (*View, error)
	GetSession(ctx context.Context, sessionID string) (*View, error)
	AnswerQuestion(ctx context.Context, sessionID, questionID string, sel quiz.Selection) (*View, error)
	ToggleOption(ctx context.Context, sessionID, questionID, optionID string) (*View, error)
	AnswerZodiac(ctx context.Context, sessionID string, month, day int) (*View, error)
	Advance(ctx context.Context, sessionID string) (*View, error)
	Retreat(ctx context.Context, sessionID string) (*View, error)
	Submit(ctx context.Context, sessionID string) (*View, error)
	Retake(ctx context.Context, sessionID string) (*View, error)
	GetResult(ctx context.Context, sessionID string) (*ResultView, error)
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  string      `json:"-"`
}

type startSessionRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type toggleRequest struct {
	OptionID string `json:"option_id"`
}

type zodiacRequest struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

func NewHandler(svc funnelService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	view, err := h.svc.StartSession(r.Context(), Identity{FullName: req.FullName, Email: req.Email})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: view})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	questionID := strings.TrimSpace(chi.URLParam(r, "questionID"))
	if questionID == "" {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid question id"})
		return
	}

	var sel quiz.Selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	view, err := h.svc.AnswerQuestion(r.Context(), sessionID, questionID, sel)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	questionID := strings.TrimSpace(chi.URLParam(r, "questionID"))

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || questionID == "" || strings.TrimSpace(req.OptionID) == "" {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "question id and option_id are required"})
		return
	}

	view, err := h.svc.ToggleOption(r.Context(), sessionID, questionID, req.OptionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) Zodiac(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	var req zodiacRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	view, err := h.svc.AnswerZodiac(r.Context(), sessionID, req.Month, req.Day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Advance)
}

func (h *Handler) Retreat(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Retreat)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Submit)
}

func (h *Handler) Retake(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Retake(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: view})
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GetResult(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: res})
}

// ResolveZodiac answers GET /zodiac?month=&day= without touching a session.
func (h *Handler) ResolveZodiac(w http.ResponseWriter, r *http.Request) {
	month, errM := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("month")))
	day, errD := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("day")))
	if errM != nil || errD != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "month and day must be numbers", Code: "invalid_date"})
		return
	}
	sign, err := zodiac.ResolveDate(month, day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: sign})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*View, error)) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	view, err := fn(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid session id"})
		return "", false
	}
	return id.String(), true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
	case errors.Is(err, zodiac.ErrInvalidDate):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error(), Code: "invalid_date"})
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
	case errors.Is(err, quiz.ErrUnknownOption):
		writeJSON(w, r, http.StatusUnprocessableEntity, response{OK: false, Error: err.Error(), Code: "unknown_option"})
	case errors.Is(err, quiz.ErrInvalidSelection):
		writeJSON(w, r, http.StatusUnprocessableEntity, response{OK: false, Error: err.Error(), Code: "invalid_selection"})
	case errors.Is(err, quiz.ErrQuestionNotInPath):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error(), Code: "question_not_in_path"})
	case errors.Is(err, quiz.ErrNotAnswered):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error(), Code: "not_answered"})
	case errors.Is(err, quiz.ErrNotTerminal):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error(), Code: "not_terminal"})
	case errors.Is(err, quiz.ErrSessionComplete):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error(), Code: "session_complete"})
	case errors.Is(err, quiz.ErrNoReachableQuestion):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error(), Code: "no_reachable_question"})
	case errors.Is(err, catalog.ErrQuizNotLoaded):
		writeJSON(w, r, http.StatusServiceUnavailable, response{OK: false, Error: err.Error(), Code: "quiz_unavailable"})
	case errors.Is(err, quiz.ErrMalformedGraph):
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "quiz configuration is invalid", Code: "malformed_graph"})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
