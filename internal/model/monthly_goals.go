package model

import (
	"time"
)

// MonthlyGoals holds the targets a user sets for one calendar month.
// One record per (user, month).
type MonthlyGoals struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"-"`
	Month             string    `db:"month" json:"month"` // YYYY-MM
	GrossRevenue      float64   `db:"gross_revenue" json:"gross_revenue"`
	RevenueForecast   float64   `db:"revenue_forecast" json:"revenue_forecast"`
	Costs             float64   `db:"costs" json:"costs"`
	SiteVisits        float64   `db:"site_visits" json:"site_visits"`
	SocialFollowers   float64   `db:"social_followers" json:"social_followers"`
	PRArticles        float64   `db:"pr_articles" json:"pr_articles"`
	WorkshopCustomers float64   `db:"workshop_customers" json:"workshop_customers"`
	AdvisoryCustomers float64   `db:"advisory_customers" json:"advisory_customers"`
	Lectures          float64   `db:"lectures" json:"lectures"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Metric returns the target for the named metric.
func (g *MonthlyGoals) Metric(metric string) float64 {
	if g == nil {
		return 0
	}
	switch metric {
	case MetricGrossRevenue:
		return g.GrossRevenue
	case MetricCosts:
		return g.Costs
	case MetricSiteVisits:
		return g.SiteVisits
	case MetricSocialFollowers:
		return g.SocialFollowers
	case MetricPRArticles:
		return g.PRArticles
	case MetricWorkshopCustomers:
		return g.WorkshopCustomers
	case MetricAdvisoryCustomers:
		return g.AdvisoryCustomers
	case MetricLectures:
		return g.Lectures
	}
	return 0
}
