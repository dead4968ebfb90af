package sim

import "fmt"

// InvariantViolationError reports an optimizer response priced above the
// candidate price. The loop aborts on it.
type InvariantViolationError struct {
	RequestID      string
	CandidatePrice float64
	OptimizedPrice float64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("request %s: optimized price %f exceeds candidate price %f",
		e.RequestID, e.OptimizedPrice, e.CandidatePrice)
}
