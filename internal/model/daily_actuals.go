package model

import (
	"time"
)

// DailyActuals is what the user actually achieved on one day.
// At most one record per (user, date).
type DailyActuals struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"-"`
	Date              string    `db:"date" json:"date"`   // YYYY-MM-DD
	Month             string    `db:"month" json:"month"` // YYYY-MM, derived from Date
	GrossRevenue      float64   `db:"gross_revenue" json:"gross_revenue"`
	Costs             float64   `db:"costs" json:"costs"`
	SiteVisits        float64   `db:"site_visits" json:"site_visits"`
	SocialFollowers   float64   `db:"social_followers" json:"social_followers"`
	PRArticles        float64   `db:"pr_articles" json:"pr_articles"`
	WorkshopCustomers float64   `db:"workshop_customers" json:"workshop_customers"`
	AdvisoryCustomers float64   `db:"advisory_customers" json:"advisory_customers"`
	Lectures          float64   `db:"lectures" json:"lectures"`
	Notes             string    `db:"notes" json:"notes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Metric returns the actual value recorded for the named metric.
func (a *DailyActuals) Metric(metric string) float64 {
	if a == nil {
		return 0
	}
	switch metric {
	case MetricGrossRevenue:
		return a.GrossRevenue
	case MetricCosts:
		return a.Costs
	case MetricSiteVisits:
		return a.SiteVisits
	case MetricSocialFollowers:
		return a.SocialFollowers
	case MetricPRArticles:
		return a.PRArticles
	case MetricWorkshopCustomers:
		return a.WorkshopCustomers
	case MetricAdvisoryCustomers:
		return a.AdvisoryCustomers
	case MetricLectures:
		return a.Lectures
	}
	return 0
}
