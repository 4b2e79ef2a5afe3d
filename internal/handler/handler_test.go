package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/advisor"
	"github.com/templui/fractional/internal/ctxkeys"
	"github.com/templui/fractional/internal/db/dbtest"
	"github.com/templui/fractional/internal/export"
	"github.com/templui/fractional/internal/markdown"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/service"
	"github.com/templui/fractional/internal/service/payment"
	"github.com/templui/fractional/internal/storage"
	"github.com/templui/fractional/internal/validation"
)

type testServer struct {
	mux  *http.ServeMux
	user *model.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conn := dbtest.New(t)
	dbtest.CreateUser(t, conn, "u1", "dana@example.com")

	users := repository.NewUserRepository(conn)
	profiles := repository.NewProfileRepository(conn)
	goalsRepo := repository.NewMonthlyGoalsRepository(conn)
	actualsRepo := repository.NewDailyActualsRepository(conn)
	achievements := repository.NewAchievementRepository(conn)
	opps := repository.NewOpportunityRepository(conn)
	contacts := repository.NewContactRepository(conn)

	usage := service.NewUsageService(repository.NewUsageRepository(conn))
	email := service.NewEmailService("", "noreply@example.com", "http://localhost:8090", "Fractional", true)
	authService := service.NewAuthService(users, profiles, email, "test-secret", false, time.Hour)
	profileService := service.NewProfileService(profiles)
	goals := service.NewGoalsService(goalsRepo, usage)
	tracking := service.NewTrackingService(conn, goalsRepo, actualsRepo, achievements, usage)
	oppService := service.NewOpportunityService(opps, contacts, goalsRepo, usage)
	contactService := service.NewContactService(contacts, usage)

	adv, err := advisor.New(nil, markdown.NewParser())
	require.NoError(t, err)
	advisorService := service.NewAdvisorService(service.AdvisorRepos{
		Chat:          repository.NewChatRepository(conn),
		Profiles:      profiles,
		Goals:         goalsRepo,
		Actuals:       actualsRepo,
		Opportunities: opps,
		Achievements:  achievements,
	}, adv, usage)

	exportService := service.NewExportService(service.ExportRepos{
		Sheets:        repository.NewSheetsRepository(conn),
		Goals:         goalsRepo,
		Actuals:       actualsRepo,
		Opportunities: opps,
	}, nil, nil, "", nil, usage)

	revenue := service.NewRevenueService(payment.NewProviders("whsec_test", ""), users, tracking, "")

	authH := NewAuthHandler(authService, profileService)
	trackingH := NewTrackingHandler(goals, tracking)
	pipelineH := NewPipelineHandler(oppService, contactService)
	advisorH := NewAdvisorHandler(advisorService)
	exportH := NewExportHandler(exportService)
	webhookH := NewWebhookHandler(revenue)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("GET /api/me", authH.Me)
	mux.HandleFunc("PUT /api/goals/{month}", trackingH.SaveGoals)
	mux.HandleFunc("GET /api/goals/{month}", trackingH.Goals)
	mux.HandleFunc("PUT /api/actuals/{date}", trackingH.SaveActuals)
	mux.HandleFunc("GET /api/actuals/{date}", trackingH.Actuals)
	mux.HandleFunc("GET /api/summary/{month}", trackingH.Summary)
	mux.HandleFunc("POST /api/opportunities", pipelineH.CreateOpportunity)
	mux.HandleFunc("GET /api/opportunities/{id}", pipelineH.Opportunity)
	mux.HandleFunc("PATCH /api/opportunities/{id}/stage", pipelineH.UpdateStage)
	mux.HandleFunc("GET /api/contacts", pipelineH.ListContacts)
	mux.HandleFunc("POST /api/advisor/ask", advisorH.Ask)
	mux.HandleFunc("POST /api/export/csv/{month}", exportH.ExportCSV)
	mux.HandleFunc("POST /api/export/sheets/{month}", exportH.ExportSheets)
	mux.HandleFunc("POST /api/webhooks/{provider}", webhookH.Revenue)

	return &testServer{mux: mux, user: &model.User{ID: "u1", Email: "dana@example.com"}}
}

// do sends body as JSON on behalf of the test user and decodes the envelope.
func (s *testServer) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, Result) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	r := httptest.NewRequest(method, target, &buf)
	if s.user != nil {
		r = r.WithContext(ctxkeys.WithUser(r.Context(), s.user))
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, r)

	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w, res
}

func today() string {
	return time.Now().UTC().Format(model.DateLayout)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{validation.Invalid("month", "bad"), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", service.ErrInvalidCredentials), http.StatusUnauthorized},
		{service.ErrEmailAlreadyExists, http.StatusConflict},
		{export.ErrSheetsUnauthorized, http.StatusConflict},
		{service.ErrSheetsNotConfigured, http.StatusServiceUnavailable},
		{storage.ErrNotConfigured, http.StatusServiceUnavailable},
		{repository.ErrOpportunityNotFound, http.StatusNotFound},
		{service.ErrUnknownProvider, http.StatusNotFound},
		{errors.New("disk I/O error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, message := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, message)
		})
	}

	_, message := classify(errors.New("pq: secret table name"))
	assert.NotContains(t, message, "secret", "internal errors are not echoed")
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.user = nil

	w, res := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "Sam@Example.com", "password": "correct horse battery staple", "name": "Sam",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, res.Success)

	data := res.Data.(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "sam@example.com", data["user"].(map[string]any)["email"])
	assert.NotContains(t, w.Body.String(), "password_hash")

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == service.AuthCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	w, res = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "sam@example.com", "password": "wrong password!!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, res.Success)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "sam@example.com", "password": "correct horse battery staple"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "sam@example.com", "password": "correct horse battery staple", "name": "Sam",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)

	w, res := s.do(t, http.MethodPut, "/api/goals/2026-10", `{"gross_revenue": 1000, "revnue": 5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, res.Error, "body")
}

func TestTracking_SaveActuals(t *testing.T) {
	s := newTestServer(t)
	month := today()[:7]

	w, res := s.do(t, http.MethodPut, "/api/goals/"+month, map[string]any{"gross_revenue": 10000, "costs": 2000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, month, res.Data.(map[string]any)["month"])

	w, res = s.do(t, http.MethodPut, "/api/actuals/"+today(), map[string]any{"gross_revenue": 1500, "notes": "kickoff"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := res.Data.(map[string]any)
	assert.Equal(t, 1500.0, data["actuals"].(map[string]any)["gross_revenue"])
	assert.Equal(t, 1.0, data["streak"].(map[string]any)["current_streak"])
	assert.NotNil(t, data["newly_unlocked"])

	w, res = s.do(t, http.MethodGet, "/api/summary/"+month, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, res.Data.(map[string]any)["progress"], len(model.Metrics))
}

func TestTracking_Errors(t *testing.T) {
	s := newTestServer(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(model.DateLayout)

	w, _ := s.do(t, http.MethodPut, "/api/actuals/"+tomorrow, map[string]any{"gross_revenue": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/actuals/"+today(), map[string]any{"gross_revenue": -5})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/actuals/"+today(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/summary/2026-13", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, res := s.do(t, http.MethodGet, "/api/goals/2026-10", nil)
	assert.Equal(t, http.StatusOK, w.Code, "missing goals read as zero targets")
	assert.Equal(t, 0.0, res.Data.(map[string]any)["gross_revenue"])
}

func TestPipeline_StageTransitions(t *testing.T) {
	s := newTestServer(t)

	w, res := s.do(t, http.MethodPost, "/api/opportunities", map[string]any{
		"title": "Board advisory", "type": model.OpportunityTypeAdvisory, "stage": model.StageProposal,
		"probability": 40, "estimated_value": 12000, "month": "2026-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := res.Data.(map[string]any)["id"].(string)

	w, res = s.do(t, http.MethodPatch, "/api/opportunities/"+id+"/stage", map[string]any{"stage": model.StageWon})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 100.0, res.Data.(map[string]any)["probability"])

	w, _ = s.do(t, http.MethodPatch, "/api/opportunities/"+id+"/stage", map[string]any{"stage": "signed"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/opportunities/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, res = s.do(t, http.MethodGet, "/api/contacts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, res.Data)
}

func TestAdvisor_DegradedWithoutProvider(t *testing.T) {
	s := newTestServer(t)

	w, res := s.do(t, http.MethodPost, "/api/advisor/ask", map[string]any{"question": "Where should I focus?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := res.Data.(map[string]any)
	assert.Equal(t, true, data["degraded"])
	assert.Equal(t, advisor.Apology, data["response"])

	w, _ = s.do(t, http.MethodPost, "/api/advisor/ask", map[string]any{"question": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/advisor/ask", map[string]any{"question": "hi", "conversation_type": "tarot"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExport_NotConfigured(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/export/csv/2026-10", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/export/sheets/2026-10", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhook_Rejections(t *testing.T) {
	s := newTestServer(t)
	s.user = nil

	w, _ := s.do(t, http.MethodPost, "/api/webhooks/paypal", "{}")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, res := s.do(t, http.MethodPost, "/api/webhooks/stripe", `{"type":"invoice.paid"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "webhook rejected", res.Error)
}
