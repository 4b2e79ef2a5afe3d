package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RunState is the lifecycle of an asynchronous assistant run.
//
//	queued -> running -> completed
//	                  \-> failed
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

const (
	defaultMaxPollAttempts = 30
	defaultPollInterval    = time.Second
	defaultMaxPollInterval = 5 * time.Second
)

var (
	ErrRunFailed      = errors.New("assistant run failed")
	ErrRunTimeout     = errors.New("assistant run did not finish in time")
	ErrBadTransition  = errors.New("invalid assistant run transition")
	errRunNotFinished = errors.New("assistant run not finished")
)

// Terminal reports whether no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Next validates a transition from s to next.
func (s RunState) Next(next RunState) (RunState, error) {
	switch s {
	case RunQueued:
		if next == RunQueued || next == RunRunning || next.Terminal() {
			return next, nil
		}
	case RunRunning:
		if next == RunRunning || next.Terminal() {
			return next, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrBadTransition, s, next)
}

// parseRunStatus maps the provider's run status onto RunState.
func parseRunStatus(status string) RunState {
	switch status {
	case "queued":
		return RunQueued
	case "in_progress", "cancelling", "requires_action":
		return RunRunning
	case "completed":
		return RunCompleted
	default: // failed, cancelled, expired, incomplete
		return RunFailed
	}
}

// PollPolicy bounds how long a run is waited on.
type PollPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p PollPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxPollAttempts
	}
	// WithMaxRetries counts retries after the first try.
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// WaitForRun polls fetch until the run reaches a terminal state. It returns
// ErrRunTimeout when the attempts run out first.
func WaitForRun(ctx context.Context, policy PollPolicy, fetch func(context.Context) (RunState, error)) (RunState, error) {
	state := RunQueued

	poll := func() error {
		observed, err := fetch(ctx)
		if err != nil {
			if isRetryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		next, err := state.Next(observed)
		if err != nil {
			return backoff.Permanent(err)
		}
		state = next

		if !state.Terminal() {
			return errRunNotFinished
		}
		return nil
	}

	if err := backoff.Retry(poll, policy.backOff(ctx)); err != nil {
		if errors.Is(err, errRunNotFinished) {
			return state, ErrRunTimeout
		}
		return state, err
	}

	if state == RunFailed {
		return state, ErrRunFailed
	}
	return state, nil
}

type threadRunRequest struct {
	AssistantID  string `json:"assistant_id"`
	Instructions string `json:"instructions,omitempty"`
	Thread       struct {
		Messages []openAIMessage `json:"messages"`
	} `json:"thread"`
}

type runObject struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type messageList struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// AssistantClient runs a prompt through an OpenAI assistant: it starts a
// thread run, waits for it and reads back the assistant's reply.
type AssistantClient struct {
	transport
	assistantID string
	poll        PollPolicy
}

func NewAssistantClient(cfg Config) *AssistantClient {
	return &AssistantClient{
		transport:   newTransport(cfg, defaultOpenAIBaseURL, defaultOpenAIModel),
		assistantID: cfg.AssistantID,
		poll: PollPolicy{
			MaxAttempts:     cfg.MaxPollAttempts,
			InitialInterval: defaultPollInterval,
			MaxInterval:     defaultMaxPollInterval,
		},
	}
}

// WithPollPolicy overrides the default poll policy.
func (c *AssistantClient) WithPollPolicy(p PollPolicy) *AssistantClient {
	c.poll = p
	return c
}

func (c *AssistantClient) Complete(ctx context.Context, req Request) (string, error) {
	body := threadRunRequest{
		AssistantID:  c.assistantID,
		Instructions: req.System,
	}
	for _, m := range req.Messages {
		body.Thread.Messages = append(body.Thread.Messages, openAIMessage(m))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var run runObject
	_, err = c.call(ctx, func() (string, error) {
		return "", c.do(ctx, http.MethodPost, "/v1/threads/runs", payload, &run)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	_, err = WaitForRun(ctx, c.poll, func(ctx context.Context) (RunState, error) {
		var current runObject
		path := fmt.Sprintf("/v1/threads/%s/runs/%s", url.PathEscape(run.ThreadID), url.PathEscape(run.ID))
		if err := c.do(ctx, http.MethodGet, path, nil, &current); err != nil {
			return "", err
		}
		if current.LastError != nil {
			run.LastError = current.LastError
		}
		return parseRunStatus(current.Status), nil
	})
	if err != nil {
		if errors.Is(err, ErrRunFailed) && run.LastError != nil {
			return "", fmt.Errorf("%w: %s", err, run.LastError.Message)
		}
		return "", err
	}

	var messages messageList
	path := fmt.Sprintf("/v1/threads/%s/messages?order=desc&limit=1", url.PathEscape(run.ThreadID))
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return "", fmt.Errorf("failed to read run output: %w", err)
	}

	for _, msg := range messages.Data {
		if msg.Role != RoleAssistant {
			continue
		}
		var text strings.Builder
		for _, part := range msg.Content {
			if part.Type == "text" {
				text.WriteString(part.Text.Value)
			}
		}
		if text.Len() > 0 {
			return text.String(), nil
		}
	}

	return "", ErrEmptyResponse
}

func (c *AssistantClient) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openAIError
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return statusError(resp.StatusCode, errResp.Error.Message)
		}
		return statusError(resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
