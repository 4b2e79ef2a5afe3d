package model

const (
	MetricGrossRevenue      = "gross_revenue"
	MetricCosts             = "costs"
	MetricSiteVisits        = "site_visits"
	MetricSocialFollowers   = "social_followers"
	MetricPRArticles        = "pr_articles"
	MetricWorkshopCustomers = "workshop_customers"
	MetricAdvisoryCustomers = "advisory_customers"
	MetricLectures          = "lectures"
)

// Metrics lists every tracked metric in display order.
var Metrics = []string{
	MetricGrossRevenue,
	MetricCosts,
	MetricSiteVisits,
	MetricSocialFollowers,
	MetricPRArticles,
	MetricWorkshopCustomers,
	MetricAdvisoryCustomers,
	MetricLectures,
}

// IsReversedMetric reports whether lower values are better (budgets).
func IsReversedMetric(metric string) bool {
	return metric == MetricCosts
}

// MetricLabel returns a human readable label for a metric key.
func MetricLabel(metric string) string {
	switch metric {
	case MetricGrossRevenue:
		return "Gross revenue"
	case MetricCosts:
		return "Costs"
	case MetricSiteVisits:
		return "Site visits"
	case MetricSocialFollowers:
		return "Social followers"
	case MetricPRArticles:
		return "PR articles"
	case MetricWorkshopCustomers:
		return "Workshop customers"
	case MetricAdvisoryCustomers:
		return "Advisory customers"
	case MetricLectures:
		return "Lectures"
	}
	return metric
}
