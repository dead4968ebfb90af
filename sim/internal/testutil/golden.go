// Package testutil provides shared test infrastructure for the bidsim packages.
// It holds the golden auction dataset types and assertion helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/golden_auctions.json.
type GoldenDataset struct {
	Tests []GoldenAuction `json:"tests"`
}

// GoldenAuction is one hand-computed auction: a market with a fixed curve,
// a price and the uniform draw that decides it.
type GoldenAuction struct {
	Name     string        `json:"name"`
	MinPrice float64       `json:"min_price"`
	MaxPrice float64       `json:"max_price"`
	GridSize int           `json:"grid_size"`
	Curve    []float64     `json:"curve"`
	Price    float64       `json:"price"`
	Draw     float64       `json:"draw"`
	Expected GoldenOutcome `json:"expected"`
}

// GoldenOutcome represents the expected results of a golden auction.
type GoldenOutcome struct {
	WinProbability float64   `json:"win_probability"`
	Outcome        string    `json:"outcome"`
	NetRevenue     []float64 `json:"net_revenue"`
	Expectations   []float64 `json:"expectations"`
	OptimalPrice   float64   `json:"optimal_price"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_auctions.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset is empty")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertFloat64SliceEqual compares two slices element-wise with AssertFloat64Equal.
func AssertFloat64SliceEqual(t *testing.T, name string, want, got []float64, relTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Errorf("%s: got %d values, want %d", name, len(got), len(want))
		return
	}
	for i := range want {
		AssertFloat64Equal(t, name, want[i], got[i], relTol)
	}
}
