package pipeline

import (
	"time"

	"github.com/templui/fractional/internal/model"
)

// HealthReport summarizes how well the pipeline is being worked.
type HealthReport struct {
	Open         int      `json:"open"`
	Stale        int      `json:"stale"`
	Won          int      `json:"won"`
	Lost         int      `json:"lost"`
	WinRate      float64  `json:"win_rate"` // won / (won + lost) in percent, 0 with no closed deals
	StaleTitles  []string `json:"stale_titles,omitempty"`
	OpenValue    float64  `json:"open_value"`
	WeightedOpen float64  `json:"weighted_open"`
}

// Health inspects opportunities as of now.
func Health(opportunities []*model.Opportunity, now time.Time) HealthReport {
	var h HealthReport

	for _, o := range opportunities {
		if o == nil {
			continue
		}
		switch {
		case o.IsWon():
			h.Won++
		case o.IsLost():
			h.Lost++
		case o.InPipeline():
			h.Open++
			h.OpenValue += o.EstimatedValue
			h.WeightedOpen += weighted(o)
			if now.Sub(o.UpdatedAt) >= StaleAfter {
				h.Stale++
				h.StaleTitles = append(h.StaleTitles, o.Title)
			}
		}
	}

	if closed := h.Won + h.Lost; closed > 0 {
		h.WinRate = float64(h.Won) / float64(closed) * 100
	}

	return h
}
