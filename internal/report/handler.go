package report

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"scentquiz/internal/app/apiresp"
)

type Handler struct {
	svc reportService
}

type reportService interface {
	Summary(ctx context.Context) (*Summary, error)
	ListResults(ctx context.Context, limit int) ([]ResultRow, error)
	ExportResultsExcel(ctx context.Context) ([]byte, error)
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Summary(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "failed to build summary")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	items, err := h.svc.ListResults(r.Context(), limit)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "failed to list results")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.ExportResultsExcel(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "failed to export results")
		return
	}
	name := fmt.Sprintf("quiz-results-%s.xlsx", time.Now().UTC().Format("20060102"))
	apiresp.WriteFile(w, apiresp.XLSXContentType, name, body)
}
