// Package advisor answers business questions with a language model, grounded
// in a snapshot of the user's goals, progress and pipeline.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/fractional/internal/llm"
	"github.com/templui/fractional/internal/markdown"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/pipeline"
	"github.com/templui/fractional/internal/progress"
)

// ContextSchemaVersion versions the JSON shape of BusinessContext sent to
// the model.
const ContextSchemaVersion = 1

// MaxHistory is how many earlier chat messages are replayed to the model.
const MaxHistory = 10

const Apology = "Sorry, I can't reach the advisor right now. Your question has been saved, please try again in a few minutes."

var ErrEmptyQuestion = errors.New("question is required")

// BusinessContext is the snapshot the advisor reasons over.
type BusinessContext struct {
	SchemaVersion int                       `json:"schema_version"`
	AsOf          string                    `json:"as_of"`
	Profile       *model.Profile            `json:"profile,omitempty"`
	Goals         *model.MonthlyGoals       `json:"goals,omitempty"`
	Progress      []progress.MetricProgress `json:"progress"`
	Pipeline      pipeline.Summary          `json:"pipeline"`
	Health        pipeline.HealthReport     `json:"pipeline_health"`
	Streak        model.StreakData          `json:"streak"`
	History       []model.ChatMessage       `json:"-"`
}

// ContextInputs are the records NewBusinessContext summarizes.
type ContextInputs struct {
	Now           time.Time
	Profile       *model.Profile
	Goals         *model.MonthlyGoals
	Actuals       []*model.DailyActuals
	Opportunities []*model.Opportunity
	Streak        model.StreakData
	History       []*model.ChatMessage
}

func NewBusinessContext(in ContextInputs) (BusinessContext, error) {
	bc := BusinessContext{
		SchemaVersion: ContextSchemaVersion,
		AsOf:          model.DateKey(in.Now),
		Profile:       in.Profile,
		Goals:         in.Goals,
		Pipeline:      pipeline.Aggregate(in.Opportunities, in.Goals),
		Health:        pipeline.Health(in.Opportunities, in.Now),
		Streak:        in.Streak,
	}

	if in.Goals != nil {
		metrics, err := progress.MonthToDate(in.Goals, in.Actuals, in.Now)
		if err != nil {
			return BusinessContext{}, err
		}
		bc.Progress = metrics
	}

	history := in.History
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	for _, m := range history {
		if m != nil {
			bc.History = append(bc.History, *m)
		}
	}

	return bc, nil
}

type Response struct {
	Response         string `json:"response"`
	HTML             string `json:"html"`
	ConversationType string `json:"conversation_type"`
	Degraded         bool   `json:"degraded"`
}

type Advisor struct {
	completer llm.Completer
	prompts   map[string]Prompt
	parser    *markdown.Parser
}

// New builds an advisor. A nil completer makes every answer the apology.
func New(completer llm.Completer, parser *markdown.Parser) (*Advisor, error) {
	prompts, err := LoadPrompts(parser)
	if err != nil {
		return nil, err
	}

	return &Advisor{
		completer: completer,
		prompts:   prompts,
		parser:    parser,
	}, nil
}

// Invoke asks the model question in the given conversation type. Provider
// failures do not return an error: the response is the apology and
// Degraded is set.
func (a *Advisor) Invoke(ctx context.Context, question string, bc BusinessContext, conversationType string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, ErrEmptyQuestion
	}

	prompt, ok := a.prompts[conversationType]
	if !ok {
		prompt = a.prompts[model.ConversationGeneral]
	}

	resp := Response{ConversationType: prompt.ConversationType}

	if a.completer == nil {
		return a.degraded(resp), nil
	}

	req, err := buildRequest(prompt, question, bc)
	if err != nil {
		return Response{}, err
	}

	answer, err := a.completer.Complete(ctx, req)
	if err != nil {
		slog.Error("advisor completion failed", "error", err, "conversation_type", prompt.ConversationType)
		return a.degraded(resp), nil
	}

	resp.Response = strings.TrimSpace(answer)
	resp.HTML = a.render(resp.Response)
	return resp, nil
}

func (a *Advisor) degraded(resp Response) Response {
	resp.Response = Apology
	resp.HTML = a.render(Apology)
	resp.Degraded = true
	return resp
}

func (a *Advisor) render(text string) string {
	html, err := a.parser.Parse([]byte(text))
	if err != nil {
		slog.Warn("failed to render advisor response", "error", err)
		return ""
	}
	return string(html)
}

func buildRequest(prompt Prompt, question string, bc BusinessContext) (llm.Request, error) {
	contextJSON, err := json.MarshalIndent(bc, "", "  ")
	if err != nil {
		return llm.Request{}, fmt.Errorf("failed to marshal business context: %w", err)
	}

	system := fmt.Sprintf("%s\n\nBusiness context (schema v%d):\n```json\n%s\n```", prompt.System, bc.SchemaVersion, contextJSON)

	messages := make([]llm.Message, 0, len(bc.History)+1)
	for _, m := range bc.History {
		role := llm.RoleUser
		if m.Role == model.ChatRoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	return llm.Request{
		System:      system,
		Messages:    messages,
		MaxTokens:   prompt.MaxTokens,
		Temperature: prompt.Temperature,
	}, nil
}
