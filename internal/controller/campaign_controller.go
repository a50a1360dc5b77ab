// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/unclebandit/crm-backend/internal/errors"
    "github.com/unclebandit/crm-backend/internal/logger"
    "github.com/unclebandit/crm-backend/internal/middleware"
    "github.com/unclebandit/crm-backend/internal/model"
    "github.com/unclebandit/crm-backend/internal/service"
)

type CampaignController struct {
    CampaignService *service.CampaignService
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
    msg := err.Error()
    if status == http.StatusInternalServerError {
        logger.L().Errorw("request_failed", "method", r.Method, "path", r.URL.Path, "error", err)
        msg = "internal server error"
    }
    writeJSON(w, status, map[string]string{"error": msg})
}

func campaignID(r *http.Request) (int64, error) {
    id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
    if err != nil || id <= 0 {
        return 0, appErrors.NewValidation("id", "invalid campaign id")
    }
    return id, nil
}

func decode(r *http.Request, dst any) error {
    if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
        return appErrors.NewValidation("body", "invalid request body")
    }
    return nil
}

type createCampaignRequest struct {
    Name          string     `json:"name"`
    Description   string     `json:"description"`
    Type          string     `json:"type"`
    Subject       string     `json:"subject"`
    Body          string     `json:"body"`
    EmailTemplate int64      `json:"emailTemplate"`
    Customers     []int64    `json:"customers"`
    Leads         []int64    `json:"leads"`
    IsScheduled   bool       `json:"isScheduled"`
    ScheduledAt   *time.Time `json:"scheduledAt"`
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
    var body createCampaignRequest
    if err := decode(r, &body); err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }

    campaign, err := c.CampaignService.CreateCampaign(r.Context(), service.CreateCampaignInput{
        Name:        body.Name,
        Description: body.Description,
        Type:        body.Type,
        Subject:     body.Subject,
        Body:        body.Body,
        TemplateID:  body.EmailTemplate,
        CustomerIDs: body.Customers,
        LeadIDs:     body.Leads,
        IsScheduled: body.IsScheduled,
        ScheduledAt: body.ScheduledAt,
    }, middleware.UserFromContext(r.Context()))
    if err != nil {
        writeError(w, r, appErrors.HTTPStatus(err), err)
        return
    }

    writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    page, _ := strconv.Atoi(q.Get("page"))
    limit, _ := strconv.Atoi(q.Get("limit"))

    filter := model.CampaignFilter{
        Status: q.Get("status"),
        Search: q.Get("search"),
    }
    if v := q.Get("isScheduled"); v != "" {
        b, err := strconv.ParseBool(v)
        if err != nil {
            writeError(w, r, http.StatusBadRequest, appErrors.NewValidation("isScheduled", "must be true or false"))
            return
        }
        filter.IsScheduled = &b
    }

    campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, limit, filter)
    if err != nil {
        writeError(w, r, appErrors.HTTPStatus(err), err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "data":       campaigns,
        "pagination": pagination,
    })
}

type updateCampaignRequest struct {
    Name          *string    `json:"name"`
    Description   *string    `json:"description"`
    Subject       *string    `json:"subject"`
    Body          *string    `json:"body"`
    EmailTemplate *int64     `json:"emailTemplate"`
    IsScheduled   *bool      `json:"isScheduled"`
    ScheduledAt   *time.Time `json:"scheduledAt"`
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }
    var body updateCampaignRequest
    if err := decode(r, &body); err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }

    campaign, err := c.CampaignService.UpdateCampaign(r.Context(), id, service.UpdateCampaignInput{
        Name:        body.Name,
        Description: body.Description,
        Subject:     body.Subject,
        Body:        body.Body,
        TemplateID:  body.EmailTemplate,
        IsScheduled: body.IsScheduled,
        ScheduledAt: body.ScheduledAt,
    }, middleware.UserFromContext(r.Context()))
    if err != nil {
        writeError(w, r, appErrors.HTTPStatus(err), err)
        return
    }

    writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }

    if err := c.CampaignService.DeleteCampaign(r.Context(), id, middleware.UserFromContext(r.Context())); err != nil {
        writeError(w, r, appErrors.HTTPStatus(err), err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]string{"message": "Campaign deleted successfully"})
}

// StartCampaign answers 400 rather than 409 when the campaign is not a draft.
func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }

    result, err := c.CampaignService.StartCampaign(r.Context(), id, middleware.UserFromContext(r.Context()))
    if err != nil {
        status := appErrors.HTTPStatus(err)
        if status == http.StatusConflict {
            status = http.StatusBadRequest
        }
        writeError(w, r, status, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "message":  "Campaign started successfully",
        "campaign": result.Campaign,
        "stats":    result.Stats,
    })
}

func (c *CampaignController) SendTestEmail(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }
    var body struct {
        TestEmail string `json:"testEmail"`
    }
    if err := decode(r, &body); err != nil {
        writeError(w, r, http.StatusBadRequest, err)
        return
    }

    err = c.CampaignService.SendTest(r.Context(), id, body.TestEmail, middleware.UserFromContext(r.Context()))
    if err != nil {
        writeError(w, r, appErrors.HTTPStatus(err), err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]string{"message": "Test email sent successfully"})
}
