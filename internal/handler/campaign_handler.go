// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/service"
)

// CampaignHandler serves the read side of campaigns.
type CampaignHandler struct {
	Service *service.CampaignService
}

func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

// GetCampaignHandlerWithStats returns the campaign, its template, resolved
// recipients and per-status counts.
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid campaign id"})
		return
	}

	details, err := h.Service.GetCampaignDetails(r.Context(), id)
	if err != nil {
		status := appErrors.HTTPStatus(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			logger.L().Errorw("campaign_details_failed", "campaign_id", id, "error", err)
			msg = "internal server error"
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}

	json.NewEncoder(w).Encode(details)
}

// GetCampaignStats returns only the per-status counts.
func (h *CampaignHandler) GetCampaignStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid campaign id"})
		return
	}

	stats, err := h.Service.CampaignStats(r.Context(), id)
	if err != nil {
		status := appErrors.HTTPStatus(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			logger.L().Errorw("campaign_stats_failed", "campaign_id", id, "error", err)
			msg = "internal server error"
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}

	json.NewEncoder(w).Encode(stats)
}
