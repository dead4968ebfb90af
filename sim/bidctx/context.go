// Package bidctx loads bidding contexts: the campaign attributes sent with
// every bid request and the recorded price schedule that paces them.
package bidctx

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Attributes are the fixed categorical fields of a context.
type Attributes struct {
	DataCenter  string `yaml:"data_center"`
	PublisherID string `yaml:"app_publisher_id"`
	BundleID    string `yaml:"bundle_id"`
	TagID       string `yaml:"tag_id"`
	Country     string `yaml:"device_geo_country"`
	AdFormat    string `yaml:"ext_ad_format"`
}

// SchedulePoint is one recorded bid: the candidate price and when it was seen.
type SchedulePoint struct {
	Price       float64 `yaml:"price"`
	TimestampMs int64   `yaml:"ts_ms"`
}

// Context is one simulated campaign.
//
// Thread-safety: Next advances a cursor and must be called from one goroutine.
type Context struct {
	Name       string          `yaml:"name"`
	MinPrice   float64         `yaml:"min_price"`
	MaxPrice   float64         `yaml:"max_price"`
	FloorPrice float64         `yaml:"floor_price"`
	Attributes `yaml:",inline"`
	Schedule   []SchedulePoint `yaml:"schedule"`

	cursor int
}

// File is the on-disk layout of a contexts file.
type File struct {
	Contexts []*Context `yaml:"contexts"`
}

// ValidationError reports an invalid context definition.
type ValidationError struct {
	Context string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("context %q: %s", e.Context, e.Reason)
}

// Load reads and validates a contexts file.
func Load(path string) ([]*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contexts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes contexts with strict field checking; unknown keys are errors.
func Parse(data []byte) ([]*Context, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing contexts YAML: %w", err)
	}
	if len(f.Contexts) == 0 {
		return nil, fmt.Errorf("contexts file defines no contexts")
	}

	seen := make(map[string]bool, len(f.Contexts))
	for _, c := range f.Contexts {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, &ValidationError{Context: c.Name, Reason: "duplicate name"}
		}
		seen[c.Name] = true
	}
	return f.Contexts, nil
}

// Find returns the context with the given name. An empty name selects the first.
func Find(contexts []*Context, name string) (*Context, error) {
	if len(contexts) == 0 {
		return nil, fmt.Errorf("no contexts loaded")
	}
	if name == "" {
		return contexts[0], nil
	}
	for _, c := range contexts {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("context %q not found", name)
}

// Validate checks price bounds, schedule prices against them, and schedule
// ordering and span.
func (c *Context) Validate() error {
	invalid := func(format string, args ...any) error {
		return &ValidationError{Context: c.Name, Reason: fmt.Sprintf(format, args...)}
	}
	switch {
	case c.Name == "":
		return invalid("name is required")
	case !(c.MinPrice < c.MaxPrice):
		return invalid("min_price %v must be below max_price %v", c.MinPrice, c.MaxPrice)
	case c.FloorPrice <= 0:
		return invalid("floor_price %v must be positive", c.FloorPrice)
	case len(c.Schedule) == 0:
		return invalid("schedule is empty")
	}
	for i, p := range c.Schedule {
		if p.Price <= 0 {
			return invalid("schedule[%d] price %v must be positive", i, p.Price)
		}
		if p.Price < c.MinPrice || p.Price > c.MaxPrice {
			return invalid("schedule[%d] price %v outside [%v, %v]", i, p.Price, c.MinPrice, c.MaxPrice)
		}
		if i > 0 && p.TimestampMs < c.Schedule[i-1].TimestampMs {
			return invalid("schedule[%d] ts_ms %d goes backwards", i, p.TimestampMs)
		}
	}
	// Replay repeats the schedule shifted by its span; a zero span would never pace.
	if c.Schedule[len(c.Schedule)-1].TimestampMs == c.Schedule[0].TimestampMs {
		return invalid("schedule must span a positive time range")
	}
	return nil
}

// Next returns the next scheduled (price, timestamp in ms). After the last
// point the schedule repeats, each lap shifted by the schedule's span so that
// timestamps never decrease.
func (c *Context) Next() (float64, int64) {
	n := len(c.Schedule)
	lap, i := c.cursor/n, c.cursor%n
	c.cursor++

	span := c.Schedule[n-1].TimestampMs - c.Schedule[0].TimestampMs
	p := c.Schedule[i]
	return p.Price, p.TimestampMs + int64(lap)*span
}

// Hash identifies the context the way the optimizer keys its price spaces.
func (c *Context) Hash() string {
	h := fnv.New64a()
	h.Write([]byte(c.DataCenter))
	h.Write([]byte(c.BundleID))
	h.Write([]byte(c.TagID))
	h.Write([]byte(c.Country))
	// The optimizer hashes the ad format twice; keep the keys aligned.
	h.Write([]byte(c.AdFormat))
	h.Write([]byte(c.AdFormat))
	return strconv.FormatUint(h.Sum64(), 10)
}
