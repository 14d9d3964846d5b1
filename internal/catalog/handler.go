package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"scentquiz/internal/app/apiresp"
	"scentquiz/internal/quiz"
)

type Handler struct {
	svc catalogService
}

type catalogService interface {
	ListProducts(ctx context.Context) ([]Product, error)
	UpsertProducts(ctx context.Context, items []Product) ([]Product, error)
	PublicQuestions(ctx context.Context) ([]PublicQuestion, error)
	ReplaceQuestions(ctx context.Context, questions []quiz.Question) (*quiz.Quiz, error)
	ImportQuestionsExcel(ctx context.Context, r io.Reader) (*ImportReport, error)
	ExportQuestionsExcel(ctx context.Context) ([]byte, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  string      `json:"-"`
}

type replaceQuestionsRequest struct {
	Questions []quiz.Question `json:"questions"`
}

type upsertProductsRequest struct {
	Products []Product `json:"products"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.PublicQuestions(r.Context())
	if err != nil {
		writeLoadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) ReplaceQuestions(w http.ResponseWriter, r *http.Request) {
	var req replaceQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	qz, err := h.svc.ReplaceQuestions(r.Context(), req.Questions)
	if err != nil {
		if errors.Is(err, quiz.ErrMalformedGraph) {
			writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error(), Code: "malformed_graph"})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}

	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]any{
		"question_count": len(qz.Questions()),
		"flat_mode":      qz.FlatMode(),
		"root_id":        qz.RootID(),
	}})
}

func (h *Handler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "file field is required"})
		return
	}
	defer file.Close()

	report, err := h.svc.ImportQuestionsExcel(r.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrMalformedGraph):
			writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error(), Code: "malformed_graph"})
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}

	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]any{
		"filename": hdr.Filename,
		"report":   report,
	}})
}

func (h *Handler) ExportQuestions(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.ExportQuestionsExcel(r.Context())
	if err != nil {
		writeLoadError(w, r, err)
		return
	}
	apiresp.WriteFile(w, apiresp.XLSXContentType, "questions.xlsx", body)
}

func (h *Handler) UpsertProducts(w http.ResponseWriter, r *http.Request) {
	var req upsertProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	items, err := h.svc.UpsertProducts(r.Context(), req.Products)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrQuizNotLoaded):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, quiz.ErrMalformedGraph):
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "quiz configuration is invalid", Code: "malformed_graph"})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
