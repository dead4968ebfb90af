package bidctx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
contexts:
  - name: banner-us
    min_price: 0.01
    max_price: 2.0
    floor_price: 0.05
    data_center: us-east
    app_publisher_id: "1001"
    bundle_id: com.example.game
    tag_id: tag-7
    device_geo_country: USA
    ext_ad_format: banner
    schedule:
      - {price: 1.2, ts_ms: 1000}
      - {price: 0.9, ts_ms: 1500}
      - {price: 1.1, ts_ms: 1500}
  - name: video-de
    min_price: 0.5
    max_price: 10
    floor_price: 0.5
    data_center: eu-central
    ext_ad_format: video
    schedule:
      - {price: 4.0, ts_ms: 0}
      - {price: 4.5, ts_ms: 250}
`

func TestParse_ValidFile(t *testing.T) {
	contexts, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, contexts, 2)

	c := contexts[0]
	assert.Equal(t, "banner-us", c.Name)
	assert.Equal(t, 0.05, c.FloorPrice)
	assert.Equal(t, "us-east", c.DataCenter)
	assert.Equal(t, "1001", c.PublisherID)
	assert.Equal(t, "com.example.game", c.BundleID)
	assert.Equal(t, "USA", c.Country)
	assert.Equal(t, "banner", c.AdFormat)
	assert.Len(t, c.Schedule, 3)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte(`
contexts:
  - name: x
    min_price: 1
    max_price: 2
    floor_price: 1
    flor_price: 1
    schedule: [{price: 1, ts_ms: 0}, {price: 1, ts_ms: 10}]
`))
	assert.Error(t, err)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty range", "contexts: [{name: a, min_price: 2, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}]}]"},
		{"zero floor", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 0, schedule: [{price: 1, ts_ms: 0}]}]"},
		{"empty schedule", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: []}]"},
		{"backwards schedule", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 5}, {price: 1, ts_ms: 4}]}]"},
		{"non-positive price", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 0, ts_ms: 0}]}]"},
		{"missing name", "contexts: [{min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}]}]"},
		{"price below min", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 0.5, ts_ms: 0}, {price: 1, ts_ms: 10}]}]"},
		{"price above max", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}, {price: 2.5, ts_ms: 10}]}]"},
		{"single point", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}]}]"},
		{"zero span", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 7}, {price: 1.5, ts_ms: 7}]}]"},
		{"duplicate name", "contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}, {price: 1, ts_ms: 5}]}, {name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}, {price: 1, ts_ms: 5}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
		})
	}
}

func TestParse_BoundaryPricesAccepted(t *testing.T) {
	// GIVEN schedule prices exactly on min_price and max_price
	contexts, err := Parse([]byte("contexts: [{name: a, min_price: 1, max_price: 2, floor_price: 1, schedule: [{price: 1, ts_ms: 0}, {price: 2, ts_ms: 10}]}]"))

	// THEN the context is valid
	require.NoError(t, err)
	assert.Len(t, contexts[0].Schedule, 2)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contexts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	contexts, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, contexts, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	contexts, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	c, err := Find(contexts, "")
	require.NoError(t, err)
	assert.Equal(t, "banner-us", c.Name)

	c, err = Find(contexts, "video-de")
	require.NoError(t, err)
	assert.Equal(t, "video-de", c.Name)

	_, err = Find(contexts, "native")
	assert.Error(t, err)
}

func TestContext_Next_WrapsMonotonically(t *testing.T) {
	// GIVEN a schedule spanning 1000..1500 ms
	c := &Context{Schedule: []SchedulePoint{{1.2, 1000}, {0.9, 1500}, {1.1, 1500}}}

	// WHEN it is read past its end
	var prices []float64
	var stamps []int64
	for i := 0; i < 7; i++ {
		p, ts := c.Next()
		prices = append(prices, p)
		stamps = append(stamps, ts)
	}

	// THEN prices repeat and timestamps keep increasing by the span per lap
	assert.Equal(t, []float64{1.2, 0.9, 1.1, 1.2, 0.9, 1.1, 1.2}, prices)
	assert.Equal(t, []int64{1000, 1500, 1500, 1500, 2000, 2000, 2000}, stamps)
}

func TestContext_Hash_DependsOnAttributes(t *testing.T) {
	a := &Context{Attributes: Attributes{DataCenter: "dc", BundleID: "b", TagID: "t", Country: "US", AdFormat: "banner"}}
	b := &Context{Attributes: a.Attributes}
	b.PublisherID = "ignored"

	assert.Equal(t, a.Hash(), b.Hash(), "publisher id is not part of the key")

	b.AdFormat = "video"
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestContext_Hash_MatchesOptimizerKey(t *testing.T) {
	// GIVEN the attributes of a price space the optimizer knows
	c := &Context{Attributes: Attributes{
		DataCenter:  "us-east4gcp",
		PublisherID: "1007950",
		BundleID:    "1207472156",
		TagID:       "BANNER",
		Country:     "USA",
		AdFormat:    "banner",
	}}

	// THEN the client computes the optimizer's context_hash
	assert.Equal(t, "13677617117914323147", c.Hash())
}
