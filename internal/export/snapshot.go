// Package export turns a month of tracking data into spreadsheet tables and
// pushes them to Google Sheets or to object storage as CSV.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/pipeline"
	"github.com/templui/fractional/internal/progress"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	TableGoals         = "Goals"
	TableDailyProgress = "Daily Progress"
	TablePipeline      = "Pipeline"
	TableRevenue       = "Revenue"
)

// Table is one sheet: a header row followed by data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Values returns the header and rows as one grid.
func (t Table) Values() [][]string {
	values := make([][]string, 0, len(t.Rows)+1)
	values = append(values, t.Header)
	return append(values, t.Rows...)
}

type Snapshot struct {
	Month       string
	GeneratedAt time.Time
	Tables      []Table
}

type Inputs struct {
	Month         string
	AsOf          time.Time
	Goals         *model.MonthlyGoals
	Actuals       []*model.DailyActuals
	Opportunities []*model.Opportunity
}

// Build assembles the Goals, Daily Progress, Pipeline and Revenue tables
// for in.Month.
func Build(in Inputs) (Snapshot, error) {
	if _, err := model.ParseMonth(in.Month); err != nil {
		return Snapshot{}, err
	}

	goals := in.Goals
	if goals == nil {
		goals = &model.MonthlyGoals{Month: in.Month}
	}

	goalsTable, err := buildGoals(goals, in.Actuals, in.AsOf)
	if err != nil {
		return Snapshot{}, err
	}

	var opps []*model.Opportunity
	for _, o := range in.Opportunities {
		if o.Month == in.Month {
			opps = append(opps, o)
		}
	}

	return Snapshot{
		Month:       in.Month,
		GeneratedAt: in.AsOf,
		Tables: []Table{
			goalsTable,
			buildDaily(in.Month, in.Actuals),
			buildPipeline(opps),
			buildRevenue(pipeline.Aggregate(opps, goals)),
		},
	}, nil
}

func buildGoals(goals *model.MonthlyGoals, actuals []*model.DailyActuals, asOf time.Time) (Table, error) {
	metrics, err := progress.MonthToDate(goals, actuals, asOf)
	if err != nil {
		return Table{}, err
	}

	t := Table{
		Name:   TableGoals,
		Header: []string{"Metric", "Monthly Target", "Month To Date", "Pro-Rated Target", "Progress %", "Status"},
	}
	for _, m := range metrics {
		t.Rows = append(t.Rows, []string{
			m.Label,
			formatNumber(m.MonthlyTarget),
			formatNumber(m.Current),
			formatNumber(m.Target),
			strconv.FormatFloat(m.Percentage, 'f', 0, 64),
			m.Status,
		})
	}
	return t, nil
}

func buildDaily(month string, actuals []*model.DailyActuals) Table {
	t := Table{Name: TableDailyProgress, Header: []string{"Date"}}
	for _, metric := range model.Metrics {
		t.Header = append(t.Header, headerFromKey(metric))
	}
	t.Header = append(t.Header, "Notes")

	for _, a := range actuals {
		if a.Month != month {
			continue
		}
		row := []string{a.Date}
		for _, metric := range model.Metrics {
			row = append(row, formatNumber(a.Metric(metric)))
		}
		t.Rows = append(t.Rows, append(row, a.Notes))
	}
	return t
}

func buildPipeline(opps []*model.Opportunity) Table {
	t := Table{
		Name:   TablePipeline,
		Header: []string{"Title", "Type", "Stage", "Probability %", "Estimated Value", "Weighted Value", "Last Updated"},
	}
	for _, o := range opps {
		t.Rows = append(t.Rows, []string{
			o.Title,
			headerFromKey(o.Type),
			headerFromKey(o.Stage),
			formatNumber(o.Probability),
			formatNumber(o.EstimatedValue),
			formatNumber(o.EstimatedValue * o.Probability / 100),
			model.DateKey(o.UpdatedAt),
		})
	}
	return t
}

func buildRevenue(summary pipeline.Summary) Table {
	t := Table{
		Name:   TableRevenue,
		Header: []string{"Type", "Target", "Won", "In Pipeline", "Pipeline Value", "Weighted Value", "Progress %", "Status"},
	}
	for _, tp := range summary.Types {
		t.Rows = append(t.Rows, []string{
			headerFromKey(tp.Type),
			formatNumber(tp.Target),
			strconv.Itoa(tp.Achieved),
			strconv.Itoa(tp.InPipeline),
			formatNumber(tp.PipelineValue),
			formatNumber(tp.WeightedPipelineValue),
			strconv.FormatFloat(tp.Progress, 'f', 0, 64),
			tp.Status,
		})
	}
	t.Rows = append(t.Rows, []string{
		"Total",
		formatNumber(summary.Revenue.Forecast),
		formatNumber(summary.Revenue.Won),
		"",
		formatNumber(summary.PipelineValue),
		formatNumber(summary.WeightedPipelineValue),
		strconv.FormatFloat(summary.Revenue.Progress, 'f', 0, 64),
		"",
	})
	return t
}

// headerFromKey turns "advisory_customers" into "Advisory Customers".
func headerFromKey(key string) string {
	if key == model.OpportunityTypePR {
		return "PR"
	}
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	caser := cases.Title(language.English)
	for i, word := range words {
		words[i] = caser.String(word)
	}
	return strings.Join(words, " ")
}

// formatNumber prints whole numbers without decimals and everything else
// with two.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.2f", v)
}
