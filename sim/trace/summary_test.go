package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_Empty_ZeroValues(t *testing.T) {
	// GIVEN no records
	summary := Summarize(nil)

	// THEN all counts are zero
	if summary.Requests != 0 || summary.Auctions != 0 || summary.Wins != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if !summary.Spend.IsZero() {
		t.Errorf("expected zero spend, got %s", summary.Spend)
	}
	if summary.WinRate != 0 || summary.MeanRegret != 0 {
		t.Error("expected zero rates")
	}
	if len(summary.StatusCounts) != 0 {
		t.Error("expected empty status counts")
	}
}

func TestSummarize_MixedRecords(t *testing.T) {
	// GIVEN errors, exploits and explored auctions
	records := []Record{
		{Status: "error"},
		{Status: "exploited", OptimizedPrice: 1.0},
		{Status: "explored", Auctioned: true, Won: true, FeedbackAcked: true, OptimizedPrice: 0.1, OptimalPrice: 0.3, HasOptimal: true},
		{Status: "explored", Auctioned: true, Won: true, FeedbackAcked: false, OptimizedPrice: 0.2, OptimalPrice: 0.3, HasOptimal: true},
		{Status: "explored", Auctioned: true, Won: false, OptimizedPrice: 0.7, OptimalPrice: 0.3, HasOptimal: true},
		{Status: "explored", Auctioned: true, Won: false, OptimizedPrice: 0.9},
	}

	// WHEN summarized
	s := Summarize(records)

	// THEN counts, spend and regret match
	assert.Equal(t, 6, s.Requests)
	assert.Equal(t, map[string]int{"error": 1, "exploited": 1, "explored": 4}, s.StatusCounts)
	assert.Equal(t, 4, s.Auctions)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 0.5, s.WinRate)
	assert.Equal(t, 1, s.FeedbackAcked)
	assert.Equal(t, "0.3", s.Spend.String(), "decimal sum avoids 0.1+0.2 drift")
	assert.InDelta(t, (0.2+0.1+0.4)/3, s.MeanRegret, 1e-12)
	assert.InDelta(t, 0.4, s.MaxRegret, 1e-12)
}
