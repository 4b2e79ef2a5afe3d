package insight

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/templui/fractional/internal/model"
)

// DefaultMaxInsights caps how many candidates one run returns.
const DefaultMaxInsights = 6

var ErrNoStrategy = errors.New("no insight strategy available")

// Candidate is a generated insight before it is stored.
type Candidate struct {
	Category         string    `json:"category"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Priority         string    `json:"priority"`
	SuggestedActions []string  `json:"suggested_actions"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Key identifies a candidate for de-duplication against stored insights.
func (c Candidate) Key() string {
	return Key(c.Category, c.Title)
}

func Key(category, title string) string {
	return category + "|" + strings.ToLower(strings.TrimSpace(title))
}

// Strategy produces candidates from a Context.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, c Context) ([]Candidate, error)
}

// Result is a ranked set of candidates and the strategy that produced them.
type Result struct {
	Candidates     []Candidate `json:"candidates"`
	Source         string      `json:"source"`
	FallbackReason string      `json:"fallback_reason,omitempty"` // why the primary strategy was not used
}

// Generator runs the primary strategy and falls back to the rule strategy
// when it is missing, fails or returns nothing usable.
type Generator struct {
	primary  Strategy
	fallback Strategy
	max      int
}

// NewGenerator builds a generator. primary may be nil.
func NewGenerator(primary, fallback Strategy) *Generator {
	return &Generator{primary: primary, fallback: fallback, max: DefaultMaxInsights}
}

// WithMax sets the cap on returned candidates.
func (g *Generator) WithMax(n int) *Generator {
	if n > 0 {
		g.max = n
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, c Context) (Result, error) {
	reason := "not configured"

	if g.primary != nil {
		candidates, err := g.primary.Generate(ctx, c)
		candidates = usable(candidates, c)
		switch {
		case err != nil:
			slog.Warn("primary insight strategy failed, using fallback", "strategy", g.primary.Name(), "error", err)
			reason = err.Error()
		case len(candidates) == 0:
			slog.Warn("primary insight strategy returned no insights, using fallback", "strategy", g.primary.Name())
			reason = "no usable insights"
		default:
			return Result{Candidates: g.rank(candidates), Source: g.primary.Name()}, nil
		}
	}

	if g.fallback == nil {
		return Result{}, ErrNoStrategy
	}

	candidates, err := g.fallback.Generate(ctx, c)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Candidates:     g.rank(usable(candidates, c)),
		Source:         g.fallback.Name(),
		FallbackReason: reason,
	}, nil
}

// Rank orders candidates by priority, then by confidence, both descending.
func Rank(candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := model.PriorityRank(candidates[i].Priority), model.PriorityRank(candidates[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return candidates[i].ConfidenceScore > candidates[j].ConfidenceScore
	})
	return candidates
}

func (g *Generator) rank(candidates []Candidate) []Candidate {
	candidates = Rank(candidates)
	if g.max > 0 && len(candidates) > g.max {
		candidates = candidates[:g.max]
	}
	return candidates
}

// usable drops malformed candidates and fills defaults.
func usable(candidates []Candidate, c Context) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for _, cand := range candidates {
		cand.Title = strings.TrimSpace(cand.Title)
		if cand.Title == "" || !validCategory(cand.Category) {
			continue
		}
		if seen[cand.Key()] {
			continue
		}
		seen[cand.Key()] = true

		if !validPriority(cand.Priority) {
			cand.Priority = model.InsightPriorityMedium
		}
		cand.ConfidenceScore = min(max(cand.ConfidenceScore, 0), 1)
		if cand.ExpiresAt.IsZero() || !cand.ExpiresAt.After(c.GeneratedAt) {
			cand.ExpiresAt = expiry(c, cand.Priority)
		}
		if cand.SuggestedActions == nil {
			cand.SuggestedActions = []string{}
		}

		out = append(out, cand)
	}

	return out
}

// expiry gives urgent insights a short life so they are re-evaluated soon.
func expiry(c Context, priority string) time.Time {
	switch priority {
	case model.InsightPriorityHigh:
		return c.GeneratedAt.AddDate(0, 0, 3)
	case model.InsightPriorityMedium:
		return c.GeneratedAt.AddDate(0, 0, 7)
	default:
		return c.GeneratedAt.AddDate(0, 0, 14)
	}
}

func validCategory(category string) bool {
	switch category {
	case model.InsightCategoryRevenue, model.InsightCategoryCosts, model.InsightCategoryPipeline,
		model.InsightCategoryGoals, model.InsightCategoryHabits:
		return true
	}
	return false
}

func validPriority(priority string) bool {
	switch priority {
	case model.InsightPriorityHigh, model.InsightPriorityMedium, model.InsightPriorityLow:
		return true
	}
	return false
}
