package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/templui/fractional/internal/llm"
	"github.com/templui/fractional/internal/model"
)

const llmSystemPrompt = `You are a business analyst for a fractional executive who runs a consulting practice.
You receive a JSON object describing the current month: progress against goals, revenue trajectory, sales pipeline health, tracking habits and which product features they use.

Return at most %d insights as a JSON object with exactly this shape:
{"insights": [{
  "category": "revenue" | "costs" | "pipeline" | "goals" | "habits",
  "title": string (max 60 characters),
  "description": string (2 sentences, cite the numbers),
  "priority": "high" | "medium" | "low",
  "suggested_actions": [string, ...] (1 to 3 concrete actions),
  "confidence_score": number between 0 and 1,
  "expires_in_days": integer between 1 and 14
}]}

Only use numbers present in the input. Prefer fewer, sharper insights.`

type llmInsight struct {
	Category         string   `json:"category"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         string   `json:"priority"`
	SuggestedActions []string `json:"suggested_actions"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ExpiresInDays    int      `json:"expires_in_days"`
}

type llmOutput struct {
	Insights []llmInsight `json:"insights"`
}

// LLMStrategy asks a language model for insights using a fixed JSON schema.
type LLMStrategy struct {
	completer llm.Completer
	max       int
}

func NewLLMStrategy(completer llm.Completer) *LLMStrategy {
	return &LLMStrategy{completer: completer, max: DefaultMaxInsights}
}

func (s *LLMStrategy) Name() string {
	return model.InsightSourceLLM
}

func (s *LLMStrategy) Generate(ctx context.Context, c Context) ([]Candidate, error) {
	if s.completer == nil {
		return nil, llm.ErrNotConfigured
	}

	input, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal insight context: %w", err)
	}

	raw, err := s.completer.Complete(ctx, llm.Request{
		System:      fmt.Sprintf(llmSystemPrompt, s.max),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: string(input)}},
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	return ParseLLMOutput(raw, c)
}

// ParseLLMOutput decodes a model response into candidates. Code fences and
// text around the JSON object are tolerated.
func ParseLLMOutput(raw string, c Context) ([]Candidate, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in llm response")
	}

	var out llmOutput
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("failed to parse llm insights: %w", err)
	}

	candidates := make([]Candidate, 0, len(out.Insights))
	for _, in := range out.Insights {
		days := in.ExpiresInDays
		if days < 1 || days > 14 {
			days = 7
		}
		candidates = append(candidates, Candidate{
			Category:         strings.ToLower(strings.TrimSpace(in.Category)),
			Title:            in.Title,
			Description:      strings.TrimSpace(in.Description),
			Priority:         strings.ToLower(strings.TrimSpace(in.Priority)),
			SuggestedActions: in.SuggestedActions,
			ConfidenceScore:  in.ConfidenceScore,
			ExpiresAt:        c.GeneratedAt.AddDate(0, 0, days),
		})
	}

	return candidates, nil
}

func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
