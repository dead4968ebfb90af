package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bidsim/bidsim/sim/auction"
)

const envPrefix = "BIDSIM"

// Config keys, shared by flags, environment variables and RunConfig.
const (
	keyContexts        = "contexts"
	keyContext         = "context"
	keyOptimizerURL    = "optimizer-url"
	keyGatewayTimeout  = "gateway-timeout"
	keySeed            = "seed"
	keyGridSize        = "grid-size"
	keyRegenerateEvery = "regenerate-every"
	keyOutOfDomain     = "out-of-domain"
	keyMaxRequests     = "max-requests"
	keyViewAddr        = "view-addr"
	keyTraceHeader     = "trace-header"
	keyTraceData       = "trace-data"
	keyLog             = "log"
)

// RunConfig holds everything `bidsim run` needs.
type RunConfig struct {
	ContextsPath    string
	ContextName     string
	OptimizerURL    string
	GatewayTimeout  time.Duration
	Seed            int64
	GridSize        int
	RegenerateEvery int
	OutOfDomain     auction.Policy
	MaxRequests     int
	ViewAddr        string // empty disables the view server
	TraceHeaderPath string
	TraceDataPath   string
	LogLevel        string
}

// registerRunFlags declares the run flags with their defaults.
func registerRunFlags(flags *pflag.FlagSet) {
	flags.String(keyContexts, "contexts.yaml", "Path to the bidding contexts YAML file")
	flags.String(keyContext, "", "Name of the context to simulate (default: first in file)")
	flags.String(keyOptimizerURL, "http://localhost:8000", "Base URL of the bid optimization service")
	flags.Duration(keyGatewayTimeout, 5*time.Second, "Timeout for each optimizer call (0 disables)")
	flags.Int64(keySeed, 42, "Seed for curve and win draws")
	flags.Int(keyGridSize, auction.DefaultGridSize, "Number of points on the price grid")
	flags.Int(keyRegenerateEvery, auction.DefaultRegenerateEvery, "Auctions between curve regenerations")
	flags.String(keyOutOfDomain, "fail", "Handling of prices outside the grid (fail, skip)")
	flags.Int(keyMaxRequests, 0, "Stop after this many bid requests (0 runs until interrupted)")
	flags.String(keyViewAddr, "", "Listen address for the HTTP views (empty disables)")
	flags.String(keyTraceHeader, "", "Path for the trace header YAML (requires --trace-data)")
	flags.String(keyTraceData, "", "Path for the trace CSV (requires --trace-header)")
	flags.String(keyLog, "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// newViper binds flags and BIDSIM_* environment variables. Flags set on the
// command line win over the environment, which wins over flag defaults.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

// loadRunConfig resolves a RunConfig from v and validates it.
func loadRunConfig(v *viper.Viper) (*RunConfig, error) {
	policy, err := auction.ParsePolicy(v.GetString(keyOutOfDomain))
	if err != nil {
		return nil, err
	}
	cfg := &RunConfig{
		ContextsPath:    v.GetString(keyContexts),
		ContextName:     v.GetString(keyContext),
		OptimizerURL:    v.GetString(keyOptimizerURL),
		GatewayTimeout:  v.GetDuration(keyGatewayTimeout),
		Seed:            v.GetInt64(keySeed),
		GridSize:        v.GetInt(keyGridSize),
		RegenerateEvery: v.GetInt(keyRegenerateEvery),
		OutOfDomain:     policy,
		MaxRequests:     v.GetInt(keyMaxRequests),
		ViewAddr:        v.GetString(keyViewAddr),
		TraceHeaderPath: v.GetString(keyTraceHeader),
		TraceDataPath:   v.GetString(keyTraceData),
		LogLevel:        v.GetString(keyLog),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that the downstream constructors do not.
func (c *RunConfig) Validate() error {
	switch {
	case c.ContextsPath == "":
		return fmt.Errorf("--%s is required", keyContexts)
	case c.OptimizerURL == "":
		return fmt.Errorf("--%s is required", keyOptimizerURL)
	case c.GatewayTimeout < 0:
		return fmt.Errorf("--%s must be >= 0, got %s", keyGatewayTimeout, c.GatewayTimeout)
	case c.MaxRequests < 0:
		return fmt.Errorf("--%s must be >= 0, got %d", keyMaxRequests, c.MaxRequests)
	case (c.TraceHeaderPath == "") != (c.TraceDataPath == ""):
		return fmt.Errorf("--%s and --%s must be set together", keyTraceHeader, keyTraceData)
	}
	return nil
}

// modelConfig is the auction part of the run configuration.
func (c *RunConfig) modelConfig(minPrice, maxPrice float64) auction.Config {
	return auction.Config{
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		GridSize:        c.GridSize,
		RegenerateEvery: c.RegenerateEvery,
		OutOfDomain:     c.OutOfDomain,
	}
}

// traceEnabled reports whether the run writes a trace.
func (c *RunConfig) traceEnabled() bool {
	return c.TraceHeaderPath != ""
}
