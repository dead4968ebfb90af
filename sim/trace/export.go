package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Header describes the run a set of records came from.
type Header struct {
	Version     int    `yaml:"trace_version"`
	CreatedAt   string `yaml:"created_at,omitempty"`
	Context     string `yaml:"context"`
	ContextHash string `yaml:"context_hash"`
	Optimizer   string `yaml:"optimizer_url"`
	Seed        int64  `yaml:"seed"`
	GridSize    int    `yaml:"grid_size"`
	Regenerate  int    `yaml:"regenerate_every"`
	OutOfDomain string `yaml:"out_of_domain"`
}

var columns = []string{
	"request_id", "scheduled_ms", "candidate_price", "optimized_price", "status",
	"auctioned", "won", "feedback_acked", "optimal_price", "has_optimal", "error",
}

// Export writes the header as YAML and the records as CSV.
func Export(header *Header, records []Record, headerPath, dataPath string) error {
	headerData, err := yaml.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling trace header: %w", err)
	}
	if err := os.WriteFile(headerPath, headerData, 0644); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}

	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("creating trace data file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, r := range records {
		row := []string{
			r.RequestID,
			strconv.FormatInt(r.ScheduledMs, 10),
			formatPrice(r.CandidatePrice),
			formatPrice(r.OptimizedPrice),
			r.Status,
			strconv.FormatBool(r.Auctioned),
			strconv.FormatBool(r.Won),
			strconv.FormatBool(r.FeedbackAcked),
			formatPrice(r.OptimalPrice),
			strconv.FormatBool(r.HasOptimal),
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing trace data: %w", err)
	}
	return nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
