// Package trace records what happened to every simulated bid. This package has
// no dependencies on sim/ and stores pure data types.
package trace

// Record captures one loop iteration.
type Record struct {
	RequestID      string
	ScheduledMs    int64
	CandidatePrice float64
	OptimizedPrice float64
	Status         string
	Auctioned      bool
	Won            bool
	FeedbackAcked  bool
	OptimalPrice   float64 // true optimum of the simulated market at auction time
	HasOptimal     bool
	Error          string
}

// Regret is the distance between the optimizer's price and the market optimum.
// Zero when the record has no auction or no optimum.
func (r Record) Regret() float64 {
	if !r.Auctioned || !r.HasOptimal {
		return 0
	}
	d := r.OptimalPrice - r.OptimizedPrice
	if d < 0 {
		return -d
	}
	return d
}
