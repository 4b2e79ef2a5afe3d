// Package llm talks to hosted language model APIs.
//
// Every client waits on a rate limiter before each call and retries
// transient failures (network errors, 429, 5xx) with exponential backoff.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderAssistant = "openai-assistant"
)

const (
	defaultAnthropicModel   = "claude-3-5-sonnet-latest"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIBaseURL    = "https://api.openai.com"

	defaultTimeout     = 60 * time.Second
	defaultRateLimit   = 2 // requests per second
	defaultBurst       = 4
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxTokens   = 2048
)

var (
	ErrNotConfigured = errors.New("llm provider not configured")
	ErrEmptyResponse = errors.New("empty response from llm")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSON        bool // ask for a JSON object response where supported
}

// Completer returns the model's text answer to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider        string
	APIKey          string `json:"-"`
	Model           string
	BaseURL         string
	AssistantID     string
	Timeout         time.Duration
	RateLimit       float64
	Burst           int
	MaxRetries      int
	BaseBackoff     time.Duration
	MaxPollAttempts int // bounds how often an assistant run is polled
}

// New builds the Completer for cfg.Provider. It returns ErrNotConfigured
// when no provider or API key is set, so callers can fall back.
func New(cfg Config) (Completer, error) {
	if cfg.Provider == "" || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderAssistant:
		if cfg.AssistantID == "" {
			return nil, fmt.Errorf("%w: assistant id required", ErrNotConfigured)
		}
		return NewAssistantClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// transport holds what every provider client shares.
type transport struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

func newTransport(cfg Config, defaultBaseURL, defaultModel string) transport {
	t := transport{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.model == "" {
		t.model = defaultModel
	}
	if t.maxRetries <= 0 {
		t.maxRetries = defaultMaxRetries
	}
	if t.baseBackoff <= 0 {
		t.baseBackoff = defaultBaseBackoff
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t.httpClient = &http.Client{Timeout: timeout}

	limit, burst := cfg.RateLimit, cfg.Burst
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	t.limiter = rate.NewLimiter(rate.Limit(limit), burst)

	return t
}

// call runs op after the rate limiter admits it, retrying retryable errors
// with exponential backoff.
func (t *transport) call(ctx context.Context, op func() (string, error)) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.baseBackoff
	policy.MaxElapsedTime = 0

	var result string
	attempt := func() error {
		out, err := op()
		if err != nil {
			if !isRetryableError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = out
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(t.maxRetries)), ctx)
	if err := backoff.Retry(attempt, b); err != nil {
		return "", err
	}
	return result, nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// statusError classifies a non-2xx response.
func statusError(status int, message string) error {
	err := fmt.Errorf("API error (%d): %s", status, message)
	if status == http.StatusTooManyRequests || status >= 500 {
		return &retryableError{err: err}
	}
	return err
}
