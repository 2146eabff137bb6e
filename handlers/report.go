package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Create godoc
// POST /api/reports
// Body: { "target_type": "post", "target_id": "...", "reason": "spam", "description": "..." }
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	report, err := h.reportService.Create(r.Context(), user.ID, &req)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, report)
}

// ListPending godoc
// GET /api/moderation/reports?limit=
func (h *ReportHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	reports, err := h.reportService.ListPending(r.Context(), user.ID, queryLimit(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, reports)
}

// Review godoc
// PATCH /api/moderation/reports/{id}
// Body: { "status": "reviewed" | "actioned" | "dismissed", "notes": "..." }
func (h *ReportHandler) Review(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.ReviewReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	report, err := h.reportService.Review(r.Context(), r.PathValue("id"), &req, user.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, report)
}
