package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/middleware"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
	"github.com/unclebandit/crm-backend/internal/service/servicetest"
)

func init() {
	logger.Set(zap.NewNop())
}

type env struct {
	db     *servicetest.DB
	mailer *servicetest.Mailer
	router chi.Router
	tpl    int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := servicetest.NewDB()
	mailer := &servicetest.Mailer{}
	svc := &service.CampaignService{
		Tx:            db.Tx(),
		CampaignRepo:  db.CampaignRepo(),
		RecipientRepo: db.RecipientRepo(),
		TemplateRepo:  db.TemplateRepo(),
		Resolver:      service.NewRecipientResolver(db.CustomerRepo(), db.LeadRepo()),
		Mailer:        mailer,
		Activity:      &servicetest.Activity{},
		OrgName:       "Acme CRM",
		Workers:       1,
	}
	ctrl := &controller.CampaignController{CampaignService: svc}
	admin := &model.User{ID: 1, Name: "Dana", Role: "admin", Status: "active"}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), admin)))
		})
	})
	r.Post("/campaigns", ctrl.CreateCampaign)
	r.Get("/campaigns", ctrl.ListCampaigns)
	r.Put("/campaigns/{id}", ctrl.UpdateCampaign)
	r.Delete("/campaigns/{id}", ctrl.DeleteCampaign)
	r.Post("/campaigns/start/{id}", ctrl.StartCampaign)
	r.Post("/campaigns/send-test-mail/{id}", ctrl.SendTestEmail)

	return &env{
		db:     db,
		mailer: mailer,
		router: r,
		tpl:    db.AddTemplate(model.EmailTemplate{Name: "Welcome", Subject: "Hi {{name}}", Body: "Hello from {{sender_name}}"}),
	}
}

func (e *env) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (e *env) createCampaign(t *testing.T, customers []int64) int64 {
	t.Helper()
	rec, out := e.do(t, http.MethodPost, "/campaigns", map[string]any{
		"name": "Spring", "emailTemplate": e.tpl, "customers": customers,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(out["id"].(float64))
}

func TestCreateCampaign(t *testing.T) {
	e := newEnv(t)
	alice := e.db.AddCustomer(model.Customer{Name: "Alice", Email: "alice@example.com"})

	rec, out := e.do(t, http.MethodPost, "/campaigns", map[string]any{
		"name": "Spring", "emailTemplate": e.tpl, "customers": []int64{alice, alice},
		"isScheduled": true, "scheduledAt": time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "draft", out["status"])
	assert.Equal(t, float64(1), out["created_by"])
	assert.Len(t, e.db.Recipients(int64(out["id"].(float64))), 1)
}

func TestCreateCampaign_Errors(t *testing.T) {
	e := newEnv(t)

	rec, out := e.do(t, http.MethodPost, "/campaigns", map[string]any{"emailTemplate": e.tpl})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name: name is required", out["error"])

	rec, _ = e.do(t, http.MethodPost, "/campaigns", map[string]any{"name": "x", "emailTemplate": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/campaigns", bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	e.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestListCampaigns(t *testing.T) {
	e := newEnv(t)
	e.createCampaign(t, nil)
	e.createCampaign(t, nil)

	rec, out := e.do(t, http.MethodGet, "/campaigns?page=1&limit=1&status=draft&isScheduled=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["data"], 1)
	pagination := out["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(2), pagination["total_pages"])

	rec, _ = e.do(t, http.MethodGet, "/campaigns?isScheduled=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartCampaign(t *testing.T) {
	e := newEnv(t)
	alice := e.db.AddCustomer(model.Customer{Name: "Alice", Email: "alice@example.com"})
	id := e.createCampaign(t, []int64{alice, 4040})

	rec, out := e.do(t, http.MethodPost, "/campaigns/start/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Campaign started successfully", out["message"])
	stats := out["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(1), stats["sent"])
	assert.Equal(t, float64(1), stats["failed"])
	assert.Equal(t, "completed", out["campaign"].(map[string]any)["status"])

	msgs := e.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi Alice", msgs[0].Subject)
	assert.Equal(t, "Hello from Dana", msgs[0].HTML)

	rec, _ = e.do(t, http.MethodPost, "/campaigns/start/"+itoa(id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/campaigns/start/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/campaigns/start/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartCampaign_IncompleteTemplate(t *testing.T) {
	e := newEnv(t)
	tpl := e.db.AddTemplate(model.EmailTemplate{Name: "Empty", Subject: "", Body: "b"})
	rec, out := e.do(t, http.MethodPost, "/campaigns", map[string]any{"name": "x", "emailTemplate": tpl})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/campaigns/start/"+itoa(int64(out["id"].(float64))), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendTestEmail(t *testing.T) {
	e := newEnv(t)
	alice := e.db.AddCustomer(model.Customer{Name: "Alice", Email: "alice@example.com"})
	id := e.createCampaign(t, []int64{alice})

	rec, _ := e.do(t, http.MethodPost, "/campaigns/send-test-mail/"+itoa(id), map[string]string{"testEmail": "qa@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, e.mailer.Messages(), 1)

	rec, out := e.do(t, http.MethodPost, "/campaigns/send-test-mail/"+itoa(id), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["error"], "testEmail")

	rec, _ = e.do(t, http.MethodPost, "/campaigns/send-test-mail/"+itoa(id), map[string]string{"testEmail": "not-an-address"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Len(t, e.mailer.Messages(), 1)
	assert.Equal(t, model.RecipientPending, e.db.Recipients(id)[0].Status)

	e.mailer.Err = errors.New("connection refused")
	rec, _ = e.do(t, http.MethodPost, "/campaigns/send-test-mail/"+itoa(id), map[string]string{"testEmail": "qa@example.com"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUpdateAndDeleteCampaign(t *testing.T) {
	e := newEnv(t)
	id := e.createCampaign(t, nil)

	rec, out := e.do(t, http.MethodPut, "/campaigns/"+itoa(id), map[string]any{"name": "Summer"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Summer", out["name"])

	rec, _ = e.do(t, http.MethodDelete, "/campaigns/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodPut, "/campaigns/"+itoa(id), map[string]any{"name": "Autumn"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = e.do(t, http.MethodDelete, "/campaigns/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCampaign_NotDraftIsConflict(t *testing.T) {
	e := newEnv(t)
	id := e.createCampaign(t, nil)
	_, err := e.db.CampaignRepo().TransitionStatus(context.Background(), id, model.CampaignDraft, model.CampaignRunning, time.Now())
	require.NoError(t, err)

	rec, _ := e.do(t, http.MethodPut, "/campaigns/"+itoa(id), map[string]any{"name": "Summer"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
