// Package auction simulates the second side of a bid: a market whose winning
// probability for a price is drawn from a curve that is redrawn periodically.
package auction

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultGridSize is the number of price points in the grid.
	DefaultGridSize = 51
	// DefaultRegenerateEvery is the step interval at which the winning curve is redrawn.
	DefaultRegenerateEvery = 50

	minGridSize = 3
)

// Policy selects what Step does with a price outside the grid.
type Policy int

const (
	// OutOfDomainFail makes Step return an *OutOfDomainError.
	OutOfDomainFail Policy = iota
	// OutOfDomainSkip makes Step log the price and return NoDecision.
	OutOfDomainSkip
)

var policyNames = map[Policy]string{
	OutOfDomainFail: "fail",
	OutOfDomainSkip: "skip",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps "fail" or "skip" to a Policy. Empty selects OutOfDomainFail.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail":
		return OutOfDomainFail, nil
	case "skip":
		return OutOfDomainSkip, nil
	}
	return OutOfDomainFail, &ConfigurationError{Field: "out-of-domain policy", Reason: fmt.Sprintf("%q is not one of fail, skip", s)}
}

// Outcome is the result of one auction step.
type Outcome int

const (
	// NoDecision means no probability was available for the price.
	NoDecision Outcome = iota
	Lost
	Won
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	}
	return "no_decision"
}

// Config describes the market a Model simulates.
type Config struct {
	MinPrice        float64
	MaxPrice        float64
	GridSize        int // 0 selects DefaultGridSize
	RegenerateEvery int // 0 selects DefaultRegenerateEvery
	OutOfDomain     Policy
}

func (c *Config) applyDefaults() {
	if c.GridSize == 0 {
		c.GridSize = DefaultGridSize
	}
	if c.RegenerateEvery == 0 {
		c.RegenerateEvery = DefaultRegenerateEvery
	}
}

func (c Config) validate() error {
	if !(c.MinPrice < c.MaxPrice) {
		return &ConfigurationError{Field: "price range", Reason: fmt.Sprintf("[%f, %f] is empty", c.MinPrice, c.MaxPrice)}
	}
	if c.GridSize < minGridSize {
		return &ConfigurationError{Field: "grid size", Reason: fmt.Sprintf("%d is below %d", c.GridSize, minGridSize)}
	}
	if c.RegenerateEvery < 1 {
		return &ConfigurationError{Field: "regeneration interval", Reason: fmt.Sprintf("%d is not positive", c.RegenerateEvery)}
	}
	if _, ok := policyNames[c.OutOfDomain]; !ok {
		return &ConfigurationError{Field: "out-of-domain policy", Reason: c.OutOfDomain.String() + " is unknown"}
	}
	return nil
}

// Model owns a price grid, a winning curve with one probability per grid
// interval, and the step counter that drives curve regeneration.
//
// Step mutates the model and must be driven by a single loop. The read-only
// views may be called concurrently with Step.
type Model struct {
	mu  sync.RWMutex
	cfg Config

	grid  []float64
	curve []float64

	steps         int64
	regenerations int64

	rng *rand.Rand
	exp distuv.Exponential
}

// NewModel builds the price grid and draws the initial winning curve from src.
func NewModel(cfg Config, src rand.Source) (*Model, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	grid := floats.Span(make([]float64, cfg.GridSize), cfg.MinPrice, cfg.MaxPrice)
	grid[len(grid)-1] = cfg.MaxPrice
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			return nil, &ConfigurationError{Field: "price range", Reason: fmt.Sprintf("[%f, %f] is too narrow for %d points", cfg.MinPrice, cfg.MaxPrice, cfg.GridSize)}
		}
	}

	m := &Model{cfg: cfg, grid: grid}
	m.useSource(src)
	m.curve = m.drawCurve()
	return m, nil
}

func (m *Model) useSource(src rand.Source) {
	m.rng = rand.New(src)
	m.exp = distuv.Exponential{Rate: 1, Src: src}
}

// drawCurve returns a fresh curve: N-1 values of 1-Exp(1), sorted, then
// rescaled so the first is 0 and the last is 1.
func (m *Model) drawCurve() []float64 {
	curve := make([]float64, len(m.grid)-1)
	for i := range curve {
		curve[i] = 1 - m.exp.Rand()
	}
	sort.Float64s(curve)

	lo, hi := curve[0], curve[len(curve)-1]
	span := hi - lo
	if span == 0 {
		return floats.Span(curve, 0, 1)
	}
	for i := range curve {
		curve[i] = (curve[i] - lo) / span
	}
	return curve
}

// Step runs one auction at price. Every RegenerateEvery-th step replaces the
// winning curve before the lookup.
func (m *Model) Step(price float64) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps++
	if m.steps%int64(m.cfg.RegenerateEvery) == 0 {
		m.curve = m.drawCurve()
		m.regenerations++
		logrus.Debugf("auction: winning curve regenerated at step %d", m.steps)
	}

	p, err := m.winProbability(price)
	if err != nil {
		if m.cfg.OutOfDomain == OutOfDomainSkip {
			logrus.Debugf("auction: %v", err)
			return NoDecision, nil
		}
		return NoDecision, err
	}
	if m.rng.Float64() <= p {
		return Won, nil
	}
	return Lost, nil
}

// WinProbability returns the curve value of the first interval containing
// price. Bounds are inclusive, so a grid point resolves to the interval it
// closes, not the one it opens.
func (m *Model) WinProbability(price float64) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.winProbability(price)
}

func (m *Model) winProbability(price float64) (float64, error) {
	for i := 0; i < len(m.grid)-1; i++ {
		if m.grid[i] <= price && price <= m.grid[i+1] {
			return m.curve[i], nil
		}
	}
	return 0, &OutOfDomainError{Price: price, Min: m.grid[0], Max: m.grid[len(m.grid)-1]}
}
