package auction

// Snapshot is a consistent copy of the model state for presentation.
type Snapshot struct {
	Prices        []float64 `json:"prices"`
	Curve         []float64 `json:"curve"`
	NetRevenue    []float64 `json:"net_revenue"`
	Expectations  []float64 `json:"expectations"`
	OptimalPrice  *float64  `json:"optimal_price,omitempty"`
	Steps         int64     `json:"steps"`
	Regenerations int64     `json:"regenerations"`
}

// Prices returns a copy of the price grid.
func (m *Model) Prices() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.grid...)
}

// Curve returns a copy of the current winning curve.
func (m *Model) Curve() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.curve...)
}

// NetRevenue returns, per interval, the margin between the top of the grid and
// the interval's lower price.
func (m *Model) NetRevenue() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.netRevenue()
}

// Expectations returns win probability times net revenue per interval.
func (m *Model) Expectations() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expectations(m.netRevenue())
}

// OptimalPrice returns the interval price with the highest positive expected
// net revenue. ok is false when no interval has a positive expectation.
func (m *Model) OptimalPrice() (price float64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.optimalPrice(m.expectations(m.netRevenue()))
}

// Steps returns the number of auction steps taken.
func (m *Model) Steps() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.steps
}

// Regenerations returns how many times the curve was redrawn after the initial draw.
func (m *Model) Regenerations() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regenerations
}

// Snapshot returns all views taken under one lock.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	net := m.netRevenue()
	exp := m.expectations(net)
	s := Snapshot{
		Prices:        append([]float64(nil), m.grid...),
		Curve:         append([]float64(nil), m.curve...),
		NetRevenue:    net,
		Expectations:  exp,
		Steps:         m.steps,
		Regenerations: m.regenerations,
	}
	if p, ok := m.optimalPrice(exp); ok {
		s.OptimalPrice = &p
	}
	return s
}

func (m *Model) netRevenue() []float64 {
	top := m.grid[len(m.grid)-1]
	net := make([]float64, len(m.curve))
	for i := range net {
		net[i] = top - m.grid[i]
	}
	return net
}

func (m *Model) expectations(net []float64) []float64 {
	exp := make([]float64, len(m.curve))
	for i := range exp {
		exp[i] = m.curve[i] * net[i]
	}
	return exp
}

func (m *Model) optimalPrice(exp []float64) (float64, bool) {
	best := -1
	bestVal := 0.0
	for i, v := range exp {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return m.grid[best], true
}
