package insight

import (
	"context"
	"strings"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/pipeline"
	"github.com/templui/fractional/internal/progress"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Rule thresholds.
const (
	RevenueRiskElapsed   = 0.4 // share of the month after which pace is judged
	RevenueRiskPace      = 0.5 // revenue below this share of pace is a risk
	CostOverrunTolerance = 1.1
	LowWinRate           = 25.0
	MinClosedForWinRate  = 4
	TrackingGapDays      = 3
	AdvisorIdleDays      = 14
	AheadOfTargetPercent = 110.0
)

// RuleStrategy derives insights from fixed thresholds. It needs no network
// and always succeeds, so it backs up the LLM strategy.
type RuleStrategy struct {
	printer *message.Printer
}

func NewRuleStrategy() *RuleStrategy {
	return &RuleStrategy{printer: message.NewPrinter(language.English)}
}

func (s *RuleStrategy) Name() string {
	return model.InsightSourceRules
}

func (s *RuleStrategy) Generate(_ context.Context, c Context) ([]Candidate, error) {
	var out []Candidate

	rules := []func(Context) (Candidate, bool){
		s.revenueRisk,
		s.costOverrun,
		s.pipelineGap,
		s.staleDeals,
		s.lowWinRate,
		s.trackingGap,
		s.behindGoals,
		s.advisorIdle,
		s.aheadOfTarget,
	}
	for _, rule := range rules {
		if cand, ok := rule(c); ok {
			out = append(out, cand)
		}
	}

	return out, nil
}

func (s *RuleStrategy) revenueRisk(c Context) (Candidate, bool) {
	r := c.Revenue
	if c.Elapsed < RevenueRiskElapsed || r.MonthlyTarget <= 0 || r.ProRatedTarget <= 0 {
		return Candidate{}, false
	}
	if r.MonthToDate >= r.ProRatedTarget*RevenueRiskPace {
		return Candidate{}, false
	}

	gap := r.MonthlyTarget - r.MonthToDate
	daysLeft := c.DaysInMonth - c.Day
	perDay := gap
	if daysLeft > 0 {
		perDay = gap / float64(daysLeft)
	}

	return Candidate{
		Category: model.InsightCategoryRevenue,
		Title:    "Revenue is well behind pace",
		Description: s.printer.Sprintf(
			"You have booked %.0f of the %.0f you should have by day %d (%.0f%% of pace). Closing the gap means about %.0f per remaining day.",
			r.MonthToDate, r.ProRatedTarget, c.Day, r.PaceRatio*100, perDay,
		),
		Priority: model.InsightPriorityHigh,
		SuggestedActions: []string{
			"Follow up on proposals and negotiations this week",
			"Offer an existing client an additional advisory block",
			"Review whether this month's revenue goal is still realistic",
		},
		ConfidenceScore: 0.9,
		ExpiresAt:       expiry(c, model.InsightPriorityHigh),
	}, true
}

func (s *RuleStrategy) costOverrun(c Context) (Candidate, bool) {
	costs, ok := c.Metric(model.MetricCosts)
	if !ok || costs.Target <= 0 || costs.Current <= costs.Target*CostOverrunTolerance {
		return Candidate{}, false
	}

	priority := model.InsightPriorityMedium
	if c.Revenue.Budget > 0 && costs.Current > c.Revenue.Budget {
		priority = model.InsightPriorityHigh
	}

	return Candidate{
		Category: model.InsightCategoryCosts,
		Title:    "Spending is running over budget",
		Description: s.printer.Sprintf(
			"Costs so far are %.0f against %.0f budgeted to date. %s.",
			costs.Current, costs.Target, costs.Message,
		),
		Priority: priority,
		SuggestedActions: []string{
			"List this month's expenses and flag the non-essential ones",
			"Pause discretionary spend until the end of the month",
		},
		ConfidenceScore: 0.85,
		ExpiresAt:       expiry(c, priority),
	}, true
}

func (s *RuleStrategy) pipelineGap(c Context) (Candidate, bool) {
	var short []string
	for _, tp := range c.Pipeline.Summary.Types {
		if tp.Target <= 0 {
			continue
		}
		needed := tp.Target - float64(tp.Achieved)
		if needed > 0 && float64(tp.InPipeline) < needed*2 {
			short = append(short, tp.Type)
		}
	}
	if len(short) == 0 {
		return Candidate{}, false
	}

	return Candidate{
		Category: model.InsightCategoryPipeline,
		Title:    "Pipeline is too thin to hit your targets",
		Description: s.printer.Sprintf(
			"Open opportunities for %s cover less than twice what you still need to win this month.",
			strings.Join(short, ", "),
		),
		Priority: model.InsightPriorityMedium,
		SuggestedActions: []string{
			"Ask two referral partners for introductions",
			"Turn recent conversations into qualified opportunities",
		},
		ConfidenceScore: 0.75,
		ExpiresAt:       expiry(c, model.InsightPriorityMedium),
	}, true
}

func (s *RuleStrategy) staleDeals(c Context) (Candidate, bool) {
	h := c.Pipeline.Health
	if h.Stale == 0 {
		return Candidate{}, false
	}

	titles := h.StaleTitles
	if len(titles) > 3 {
		titles = titles[:3]
	}

	return Candidate{
		Category: model.InsightCategoryPipeline,
		Title:    "Some deals have gone quiet",
		Description: s.printer.Sprintf(
			"%d open opportunities have not moved in %d days: %s.",
			h.Stale, int(pipeline.StaleAfter/(24*time.Hour)), strings.Join(titles, ", "),
		),
		Priority: model.InsightPriorityMedium,
		SuggestedActions: []string{
			"Send a short check-in to each stale opportunity",
			"Mark deals that are no longer real as lost",
		},
		ConfidenceScore: 0.8,
		ExpiresAt:       expiry(c, model.InsightPriorityMedium),
	}, true
}

func (s *RuleStrategy) lowWinRate(c Context) (Candidate, bool) {
	h := c.Pipeline.Health
	if h.Won+h.Lost < MinClosedForWinRate || h.WinRate >= LowWinRate {
		return Candidate{}, false
	}

	return Candidate{
		Category:    model.InsightCategoryPipeline,
		Title:       "Win rate is low",
		Description: s.printer.Sprintf("You have won %d of %d closed opportunities (%.0f%%).", h.Won, h.Won+h.Lost, h.WinRate),
		Priority:    model.InsightPriorityMedium,
		SuggestedActions: []string{
			"Review the last lost deals for a common objection",
			"Qualify leads harder before writing proposals",
		},
		ConfidenceScore: 0.7,
		ExpiresAt:       expiry(c, model.InsightPriorityMedium),
	}, true
}

func (s *RuleStrategy) trackingGap(c Context) (Candidate, bool) {
	h := c.Habits
	if h.DaysSinceLastEntry >= 0 && h.DaysSinceLastEntry < TrackingGapDays {
		return Candidate{}, false
	}

	desc := "You have not logged any daily numbers yet. A quick daily entry keeps your progress honest."
	if h.DaysSinceLastEntry >= 0 {
		desc = s.printer.Sprintf("Your last daily entry was %d days ago. Your best streak so far is %d days.", h.DaysSinceLastEntry, h.BestStreak)
	}

	return Candidate{
		Category:    model.InsightCategoryHabits,
		Title:       "Daily tracking has slipped",
		Description: desc,
		Priority:    model.InsightPriorityMedium,
		SuggestedActions: []string{
			"Log today's numbers now",
			"Set a fixed time each day for a two minute update",
		},
		ConfidenceScore: 0.8,
		ExpiresAt:       expiry(c, model.InsightPriorityMedium),
	}, true
}

func (s *RuleStrategy) behindGoals(c Context) (Candidate, bool) {
	if c.Elapsed < 0.5 {
		return Candidate{}, false
	}

	var behind []string
	for _, m := range c.Goals {
		if m.Metric == model.MetricGrossRevenue || m.Reversed || m.MonthlyTarget <= 0 {
			continue
		}
		if m.Status == progress.StatusBehind {
			behind = append(behind, strings.ToLower(m.Label))
		}
	}
	if len(behind) == 0 {
		return Candidate{}, false
	}

	return Candidate{
		Category:    model.InsightCategoryGoals,
		Title:       "Several goals are behind",
		Description: s.printer.Sprintf("Past the middle of the month you are behind on %s.", strings.Join(behind, ", ")),
		Priority:    model.InsightPriorityLow,
		SuggestedActions: []string{
			"Pick the one goal that matters most and focus on it this week",
		},
		ConfidenceScore: 0.6,
		ExpiresAt:       expiry(c, model.InsightPriorityLow),
	}, true
}

func (s *RuleStrategy) advisorIdle(c Context) (Candidate, bool) {
	b, ok := c.Feature(model.FeatureAdvisor)
	if !ok || (b.DaysSinceUse >= 0 && b.DaysSinceUse < AdvisorIdleDays) {
		return Candidate{}, false
	}
	// Only nudge people who track regularly.
	if c.Habits.EntriesThisMonth < 5 {
		return Candidate{}, false
	}

	return Candidate{
		Category:    model.InsightCategoryHabits,
		Title:       "Talk your month through with the advisor",
		Description: "You track consistently but have not asked the AI advisor for a while. It can review your pipeline and goals with you.",
		Priority:    model.InsightPriorityLow,
		SuggestedActions: []string{
			"Ask the advisor which opportunity to prioritise this week",
		},
		ConfidenceScore: 0.5,
		ExpiresAt:       expiry(c, model.InsightPriorityLow),
	}, true
}

func (s *RuleStrategy) aheadOfTarget(c Context) (Candidate, bool) {
	revenue, ok := c.Metric(model.MetricGrossRevenue)
	if !ok || revenue.Target <= 0 || revenue.Percentage < AheadOfTargetPercent {
		return Candidate{}, false
	}

	return Candidate{
		Category:    model.InsightCategoryGoals,
		Title:       "You are ahead of your revenue target",
		Description: s.printer.Sprintf("Revenue is at %.0f%% of pace with %.0f booked. Projected month end: %.0f.", revenue.Percentage, revenue.Current, c.Revenue.Projected),
		Priority:    model.InsightPriorityLow,
		SuggestedActions: []string{
			"Consider raising next month's target",
			"Put part of the surplus aside for slower months",
		},
		ConfidenceScore: 0.7,
		ExpiresAt:       expiry(c, model.InsightPriorityLow),
	}, true
}
