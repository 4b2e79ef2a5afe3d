package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/templui/fractional/internal/app"
	"github.com/templui/fractional/internal/handler"
	"github.com/templui/fractional/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.ProfileService)
	profile := handler.NewProfileHandler(app.ProfileService)
	tracking := handler.NewTrackingHandler(app.GoalsService, app.TrackingService)
	pipeline := handler.NewPipelineHandler(app.OpportunityService, app.ContactService)
	insights := handler.NewInsightHandler(app.InsightService)
	advisor := handler.NewAdvisorHandler(app.AdvisorService)
	export := handler.NewExportHandler(app.ExportService)
	webhook := handler.NewWebhookHandler(app.RevenueService)

	mux := http.NewServeMux()

	// handle registers h under pattern and labels its metrics with it
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.Route(pattern, h))
	}
	protected := func(pattern string, h http.HandlerFunc) {
		handle(pattern, middleware.RequireAuth(h))
	}

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.Handle("GET /metrics", promhttp.Handler())
	handle("GET /healthz", health.Healthz)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth(app.Cfg.TrustedProxies)

	handle("POST /api/auth/register", rateLimiter(middleware.RequireGuest(auth.Register)))
	handle("POST /api/auth/login", rateLimiter(middleware.RequireGuest(auth.Login)))
	handle("POST /api/auth/logout", auth.Logout)

	// Revenue webhooks (signature verified, CSRF exempt)
	handle("POST /api/webhooks/{provider}", webhook.Revenue)

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	// Account
	protected("GET /api/me", auth.Me)
	protected("POST /api/account/password", auth.ChangePassword)
	protected("DELETE /api/account", auth.DeleteAccount)

	// Profile
	protected("GET /api/profile", profile.Get)
	protected("PUT /api/profile", profile.Update)

	// Goals
	protected("GET /api/goals", tracking.ListGoals)
	protected("GET /api/goals/{month}", tracking.Goals)
	protected("PUT /api/goals/{month}", tracking.SaveGoals)
	protected("DELETE /api/goals/{month}", tracking.DeleteGoals)

	// Daily actuals and progress
	protected("GET /api/actuals/{date}", tracking.Actuals)
	protected("PUT /api/actuals/{date}", tracking.SaveActuals)
	protected("DELETE /api/actuals/{date}", tracking.DeleteActuals)
	protected("GET /api/summary/{month}", tracking.Summary)
	protected("GET /api/achievements", tracking.Achievements)

	// Pipeline
	protected("GET /api/pipeline/{month}", pipeline.View)
	protected("GET /api/opportunities", pipeline.ListOpportunities)
	protected("POST /api/opportunities", pipeline.CreateOpportunity)
	protected("GET /api/opportunities/{id}", pipeline.Opportunity)
	protected("PUT /api/opportunities/{id}", pipeline.UpdateOpportunity)
	protected("PATCH /api/opportunities/{id}/stage", pipeline.UpdateStage)
	protected("DELETE /api/opportunities/{id}", pipeline.DeleteOpportunity)

	// Contacts
	protected("GET /api/contacts", pipeline.ListContacts)
	protected("POST /api/contacts", pipeline.CreateContact)
	protected("GET /api/contacts/referrals", pipeline.ReferralStats)
	protected("GET /api/contacts/{id}", pipeline.Contact)
	protected("PUT /api/contacts/{id}", pipeline.UpdateContact)
	protected("DELETE /api/contacts/{id}", pipeline.DeleteContact)

	// AI (per-user rate limited)
	aiLimiter := middleware.RateLimitAI(app.Cfg.AIRequestsPerMinute)

	protected("GET /api/insights", insights.Active)
	protected("POST /api/insights/generate", aiLimiter(insights.Generate))
	protected("POST /api/insights/{id}/dismiss", insights.Dismiss)
	protected("POST /api/insights/{id}/action", insights.Action)

	protected("POST /api/advisor/ask", aiLimiter(advisor.Ask))
	protected("GET /api/advisor/history", advisor.History)
	protected("DELETE /api/advisor/history", advisor.ClearHistory)

	// Export
	protected("GET /api/export/sheets", export.SheetsStatus)
	protected("PUT /api/export/sheets", export.ConnectSheets)
	protected("DELETE /api/export/sheets", export.DisconnectSheets)
	protected("POST /api/export/sheets/{month}", export.ExportSheets)
	protected("POST /api/export/csv/{month}", export.ExportCSV)

	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Config(app.Cfg),                 // Config before anything that reads it (CSRF cookie flags)
		middleware.SecurityHeaders,                 // Security headers for all responses
		middleware.AuthMiddleware(app.AuthService), // Auth before logging and CSRF, both read the session
		middleware.RequestLogging,
		middleware.CSRFProtection, // CSRF protection for cookie sessions
	)

	return handler
}
