package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/handler"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/middleware"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
	"github.com/unclebandit/crm-backend/internal/service/servicetest"
)

var secret = []byte("router-test-secret")

func init() {
	logger.Set(zap.NewNop())
}

func setup(t *testing.T) (http.Handler, *servicetest.DB, *servicetest.Mailer) {
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
		Workers:       2,
	}
	return newRouter(routes{
		Controller: &controller.CampaignController{CampaignService: svc},
		Handler:    handler.NewCampaignHandler(svc),
		JWTSecret:  secret,
		Users:      db.UserRepo(),
	}), db, mailer
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, userID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, h http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _, _ := setup(t)
	rec := call(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCampaignRoutesRequireAdmin(t *testing.T) {
	h, db, _ := setup(t)
	sales := db.AddUser(model.User{Name: "Sam", Role: "sales", Status: "active"})
	inactive := db.AddUser(model.User{Name: "Ivy", Role: "admin", Status: "inactive"})

	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/campaigns", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/campaigns", "Bearer junk", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/campaigns", token(t, inactive), nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodGet, "/campaigns", token(t, sales), nil).Code)
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	h, db, mailer := setup(t)
	admin := token(t, db.AddUser(model.User{Name: "Dana", Role: "admin", Status: "active"}))
	tpl := db.AddTemplate(model.EmailTemplate{Name: "Promo", Subject: "{{company_name}} news", Body: "Hi {{name}}"})
	alice := db.AddCustomer(model.Customer{Name: "Alice", Email: "alice@example.com"})
	bob := db.AddCustomer(model.Customer{Name: "Bob", Email: "bob@example.com"})

	rec := call(t, h, http.MethodPost, "/campaigns", admin, map[string]any{
		"name": "Launch", "emailTemplate": tpl, "customers": []int64{alice, bob},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := strconv.FormatInt(created.ID, 10)

	rec = call(t, h, http.MethodPost, "/campaigns/send-test-mail/"+id, admin, map[string]string{"testEmail": "qa@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/campaigns/start/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/campaigns/"+id+"/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, service.Summary{Total: 2, Sent: 2}, stats)

	msgs := mailer.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "qa@example.com", msgs[0].To)
	assert.Equal(t, "Acme CRM news", msgs[0].Subject)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, []string{msgs[1].To, msgs[2].To})

	rec = call(t, h, http.MethodGet, "/campaigns/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	rec = call(t, h, http.MethodPost, "/campaigns/start/"+id, admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, mailer.Messages(), 3)

	rec = call(t, h, http.MethodDelete, "/campaigns/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, h, http.MethodGet, "/campaigns/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
