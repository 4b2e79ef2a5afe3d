package model

import (
	"time"
)

const (
	InsightStatusActive    = "active"
	InsightStatusDismissed = "dismissed"
	InsightStatusActioned  = "actioned"
	InsightStatusExpired   = "expired"
)

const (
	InsightPriorityHigh   = "high"
	InsightPriorityMedium = "medium"
	InsightPriorityLow    = "low"
)

const (
	InsightCategoryRevenue  = "revenue"
	InsightCategoryCosts    = "costs"
	InsightCategoryPipeline = "pipeline"
	InsightCategoryGoals    = "goals"
	InsightCategoryHabits   = "habits"
)

const (
	InsightSourceRules = "rules"
	InsightSourceLLM   = "llm"
)

type UserInsight struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"-"`
	Category         string    `db:"category" json:"category"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description"`
	Priority         string    `db:"priority" json:"priority"`
	Status           string    `db:"status" json:"status"`
	SuggestedActions []string  `db:"-" json:"suggested_actions"`
	ActionsJSON      string    `db:"suggested_actions" json:"-"`
	ConfidenceScore  float64   `db:"confidence_score" json:"confidence_score"`
	Source           string    `db:"source" json:"source"`
	ExpiresAt        time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (i *UserInsight) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// PriorityRank orders priorities for sorting, highest first.
func PriorityRank(priority string) int {
	switch priority {
	case InsightPriorityHigh:
		return 0
	case InsightPriorityMedium:
		return 1
	}
	return 2
}
