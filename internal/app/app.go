package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/advisor"
	"github.com/templui/fractional/internal/config"
	"github.com/templui/fractional/internal/db"
	"github.com/templui/fractional/internal/debounce"
	"github.com/templui/fractional/internal/export"
	"github.com/templui/fractional/internal/insight"
	"github.com/templui/fractional/internal/llm"
	"github.com/templui/fractional/internal/markdown"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/secrets"
	"github.com/templui/fractional/internal/service"
	"github.com/templui/fractional/internal/service/payment"
	"github.com/templui/fractional/internal/storage"
	"golang.org/x/oauth2"
)

type App struct {
	Cfg                *config.Config
	DB                 *sqlx.DB
	AuthService        *service.AuthService
	ProfileService     *service.ProfileService
	EmailService       *service.EmailService
	UsageService       *service.UsageService
	GoalsService       *service.GoalsService
	TrackingService    *service.TrackingService
	OpportunityService *service.OpportunityService
	ContactService     *service.ContactService
	InsightService     *service.InsightService
	AdvisorService     *service.AdvisorService
	ExportService      *service.ExportService
	RevenueService     *service.RevenueService

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := &App{Cfg: cfg, DB: database}
	a.closers = append(a.closers, database.Close)

	// Repositories
	userRepository := repository.NewUserRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	goalsRepository := repository.NewMonthlyGoalsRepository(database)
	actualsRepository := repository.NewDailyActualsRepository(database)
	achievementRepository := repository.NewAchievementRepository(database)
	opportunityRepository := repository.NewOpportunityRepository(database)
	contactRepository := repository.NewContactRepository(database)
	insightRepository := repository.NewInsightRepository(database)
	chatRepository := repository.NewChatRepository(database)
	usageRepository := repository.NewUsageRepository(database)
	sheetsRepository := repository.NewSheetsRepository(database)

	// AI provider (optional)
	completer, err := llm.New(llm.Config{
		Provider:        cfg.LLMProvider,
		APIKey:          cfg.LLMAPIKey,
		Model:           cfg.LLMModel,
		BaseURL:         cfg.LLMBaseURL,
		AssistantID:     cfg.LLMAssistantID,
		Timeout:         cfg.LLMTimeout,
		RateLimit:       cfg.LLMRateLimit,
		MaxRetries:      cfg.LLMMaxRetries,
		MaxPollAttempts: cfg.LLMMaxPollAttempts,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		slog.Info("ai provider not configured, using rule-based insights", "reason", err)
		completer = nil
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("failed to initialize llm provider: %w", err)
	default:
		slog.Info("ai provider enabled", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	}

	// Insight debounce, shared across instances when Redis is available
	guard, err := newGuard(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Token encryption for the Sheets export
	box, err := newBox(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Storage (optional, enables CSV exports)
	store, err := storage.New(ctx, cfg)
	if errors.Is(err, storage.ErrNotConfigured) {
		slog.Info("object storage not configured, csv exports disabled")
		store = nil
	} else if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	usageService := service.NewUsageService(usageRepository)

	a.EmailService = emailService
	a.UsageService = usageService
	a.AuthService = service.NewAuthService(
		userRepository,
		profileRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
	)
	a.ProfileService = service.NewProfileService(profileRepository)
	a.GoalsService = service.NewGoalsService(goalsRepository, usageService)
	a.TrackingService = service.NewTrackingService(
		database,
		goalsRepository,
		actualsRepository,
		achievementRepository,
		usageService,
	)
	a.OpportunityService = service.NewOpportunityService(opportunityRepository, contactRepository, goalsRepository, usageService)
	a.ContactService = service.NewContactService(contactRepository, usageService)

	var primary insight.Strategy
	if completer != nil {
		primary = insight.NewLLMStrategy(completer)
	}
	a.InsightService = service.NewInsightService(
		service.InsightRepos{
			Insights:      insightRepository,
			Goals:         goalsRepository,
			Actuals:       actualsRepository,
			Opportunities: opportunityRepository,
			Achievements:  achievementRepository,
			Usage:         usageRepository,
			Users:         userRepository,
			Profiles:      profileRepository,
		},
		insight.NewGenerator(primary, insight.NewRuleStrategy()),
		guard,
		cfg.InsightDebounce,
		emailService,
		usageService,
	)
	a.TrackingService.SetInsightTrigger(a.InsightService)

	adv, err := advisor.New(completer, markdown.NewParser())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load advisor prompts: %w", err)
	}
	a.AdvisorService = service.NewAdvisorService(service.AdvisorRepos{
		Chat:          chatRepository,
		Profiles:      profileRepository,
		Goals:         goalsRepository,
		Actuals:       actualsRepository,
		Opportunities: opportunityRepository,
		Achievements:  achievementRepository,
	}, adv, usageService)

	var oauthConfig *oauth2.Config
	if cfg.GoogleClientID != "" {
		oauthConfig = export.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
	}
	a.ExportService = service.NewExportService(
		service.ExportRepos{
			Sheets:        sheetsRepository,
			Goals:         goalsRepository,
			Actuals:       actualsRepository,
			Opportunities: opportunityRepository,
		},
		box,
		oauthConfig,
		cfg.SheetsBaseURL,
		store,
		usageService,
	)

	a.RevenueService = service.NewRevenueService(
		payment.NewProviders(cfg.StripeWebhookSecret, cfg.PolarWebhookSecret),
		userRepository,
		a.TrackingService,
		cfg.RevenueOwnerEmail,
	)

	return a, nil
}

func newGuard(ctx context.Context, cfg *config.Config, a *App) (debounce.Guard, error) {
	if cfg.RedisURL == "" {
		return debounce.NewMemoryGuard(), nil
	}

	guard, err := debounce.NewRedisGuardFromURL(ctx, cfg.RedisURL, "fractional:insights:")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize insight debounce: %w", err)
	}
	a.closers = append(a.closers, guard.Close)
	return guard, nil
}

// newBox returns nil when no key is configured outside development, which
// disables the Sheets export.
func newBox(cfg *config.Config) (*secrets.Box, error) {
	key := cfg.EncryptionKey
	if key == "" {
		if !cfg.IsDevelopment() {
			return nil, nil
		}
		slog.Warn("ENCRYPTION_KEY not set, deriving a development key from JWT_SECRET")
		key = secrets.DeriveKey(cfg.JWTSecret)
	}

	box, err := secrets.NewBox(key)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}
	return box, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
