package model

import (
	"time"
)

const (
	FeatureDailyTracking = "daily_tracking"
	FeatureGoals         = "goals"
	FeaturePipeline      = "pipeline"
	FeatureContacts      = "contacts"
	FeatureAdvisor       = "advisor"
	FeatureInsights      = "insights"
	FeatureExport        = "export"
)

// Features lists every feature whose usage is tracked.
var Features = []string{
	FeatureDailyTracking,
	FeatureGoals,
	FeaturePipeline,
	FeatureContacts,
	FeatureAdvisor,
	FeatureInsights,
	FeatureExport,
}

func IsValidFeature(feature string) bool {
	for _, f := range Features {
		if f == feature {
			return true
		}
	}
	return false
}

// FeatureUsage is one behavior pattern: how often and how recently a user
// touched a feature.
type FeatureUsage struct {
	UserID     string    `db:"user_id" json:"-"`
	Feature    string    `db:"feature" json:"feature"`
	UsageCount int       `db:"usage_count" json:"usage_count"`
	LastUsedAt time.Time `db:"last_used_at" json:"last_used_at"`
}
