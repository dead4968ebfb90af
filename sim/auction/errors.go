package auction

import "fmt"

// ConfigurationError reports a model configuration that cannot produce a valid
// price grid or winning curve.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("auction configuration: %s %s", e.Field, e.Reason)
}

// OutOfDomainError reports a price outside [grid[0], grid[N-1]]. It is distinct
// from a zero win probability.
type OutOfDomainError struct {
	Price float64
	Min   float64
	Max   float64
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("price %f outside winning curve domain [%f, %f]", e.Price, e.Min, e.Max)
}
