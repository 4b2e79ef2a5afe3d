package payment

import (
	"log/slog"
)

// NewProviders returns a provider for every webhook secret that is set,
// keyed by provider name.
func NewProviders(stripeWebhookSecret, polarWebhookSecret string) map[string]Provider {
	providers := make(map[string]Provider)

	if stripeWebhookSecret != "" {
		providers[ProviderStripe] = NewStripeProvider(stripeWebhookSecret)
	}

	if polarWebhookSecret != "" {
		polar, err := NewPolarProvider(polarWebhookSecret)
		if err != nil {
			slog.Error("polar webhooks disabled", "error", err)
		} else {
			providers[ProviderPolar] = polar
		}
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slog.Info("revenue webhook providers initialized", "providers", names)

	return providers
}
