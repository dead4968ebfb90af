package trace

import "github.com/shopspring/decimal"

const monetaryPrecision = 6

// Summary aggregates statistics over a run.
type Summary struct {
	Requests      int             `json:"requests"`
	StatusCounts  map[string]int  `json:"status_counts"`
	Auctions      int             `json:"auctions"`
	Wins          int             `json:"wins"`
	WinRate       float64         `json:"win_rate"`
	FeedbackAcked int             `json:"feedback_acked"`
	Spend         decimal.Decimal `json:"spend"` // sum of winning prices
	MeanRegret    float64         `json:"mean_regret"`
	MaxRegret     float64         `json:"max_regret"`
}

// Summarize computes aggregate statistics. Safe for nil or empty input
// (returns zero-value fields).
func Summarize(records []Record) *Summary {
	s := &Summary{
		StatusCounts: make(map[string]int),
		Spend:        decimal.Zero,
	}

	regretN := 0
	totalRegret := 0.0
	for _, r := range records {
		s.Requests++
		s.StatusCounts[r.Status]++
		if !r.Auctioned {
			continue
		}
		s.Auctions++
		if r.Won {
			s.Wins++
			s.Spend = s.Spend.Add(decimal.NewFromFloat(r.OptimizedPrice))
		}
		if r.FeedbackAcked {
			s.FeedbackAcked++
		}
		if r.HasOptimal {
			regret := r.Regret()
			regretN++
			totalRegret += regret
			if regret > s.MaxRegret {
				s.MaxRegret = regret
			}
		}
	}

	s.Spend = s.Spend.Round(monetaryPrecision)
	if s.Auctions > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Auctions)
	}
	if regretN > 0 {
		s.MeanRegret = totalRegret / float64(regretN)
	}
	return s
}
