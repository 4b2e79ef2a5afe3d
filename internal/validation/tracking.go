package validation

import (
	"math"

	"github.com/templui/fractional/internal/model"
)

const maxNotesLength = 2000

func ValidateMonth(month string) error {
	if _, err := model.ParseMonth(month); err != nil {
		return Invalid("month", "must be formatted YYYY-MM")
	}
	return nil
}

func ValidateDate(date string) error {
	if _, err := model.ParseDate(date); err != nil {
		return Invalid("date", "must be formatted YYYY-MM-DD")
	}
	return nil
}

// ValidateGoals checks the month key and that every target is a finite,
// non-negative number.
func ValidateGoals(goals *model.MonthlyGoals) error {
	if err := ValidateMonth(goals.Month); err != nil {
		return err
	}
	if err := nonNegative("revenue_forecast", goals.RevenueForecast); err != nil {
		return err
	}
	for _, metric := range model.Metrics {
		if err := nonNegative(metric, goals.Metric(metric)); err != nil {
			return err
		}
	}
	return nil
}

func ValidateActuals(actuals *model.DailyActuals) error {
	if err := ValidateDate(actuals.Date); err != nil {
		return err
	}
	for _, metric := range model.Metrics {
		if err := nonNegative(metric, actuals.Metric(metric)); err != nil {
			return err
		}
	}
	if len(actuals.Notes) > maxNotesLength {
		return Invalid("notes", "is too long (max 2000 characters)")
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(field, "must be a number")
	}
	if v < 0 {
		return Invalid(field, "must not be negative")
	}
	return nil
}
