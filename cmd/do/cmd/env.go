package cmd

import (
	"context"
	"fmt"

	"github.com/templui/fractional/internal/app"
	"github.com/templui/fractional/internal/config"
	"github.com/templui/fractional/internal/logger"
)

// loadConfig reads the same environment as the server.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	return cfg
}

// withApp builds the full application for commands that need services.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, loadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	return fn(a)
}
