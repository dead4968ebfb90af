package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bidsim/bidsim/sim"
	"github.com/bidsim/bidsim/sim/auction"
	"github.com/bidsim/bidsim/sim/bidctx"
	"github.com/bidsim/bidsim/sim/gateway"
	"github.com/bidsim/bidsim/sim/metrics"
	"github.com/bidsim/bidsim/sim/trace"
	"github.com/bidsim/bidsim/sim/view"
)

const traceVersion = 1

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bidsim",
	Short: "Bidding client simulator for an RTB bid optimization service",
}

// runCmd replays a context against the optimizer and simulates the auctions
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bidding simulation",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newViper(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg, err := loadRunConfig(v)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		setLogLevel(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runSimulation(ctx, cfg)
		if summary != nil {
			if perr := printSummary(cmd.OutOrStdout(), summary); perr != nil {
				logrus.Errorf("Printing summary: %v", perr)
			}
		}
		if err != nil {
			logrus.Fatalf("Simulation aborted: %v", err)
		}
	},
}

// contextsCmd lists the contexts in a contexts file
var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "List the bidding contexts in a contexts file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString(keyContexts)
		if err != nil {
			return err
		}
		contexts, err := bidctx.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range contexts {
			_, _ = fmt.Fprintf(out, "%s\t[%g, %g]\t%d points\t%s\n",
				c.Name, c.MinPrice, c.MaxPrice, len(c.Schedule), c.Hash())
		}
		return nil
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// runSimulation wires the components, runs the loop (and the views when
// enabled) until it stops, then writes the trace. The summary is returned
// even when the loop aborts.
func runSimulation(ctx context.Context, cfg *RunConfig) (*trace.Summary, error) {
	contexts, err := bidctx.Load(cfg.ContextsPath)
	if err != nil {
		return nil, err
	}
	bc, err := bidctx.Find(contexts, cfg.ContextName)
	if err != nil {
		return nil, err
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	model, err := auction.NewModel(cfg.modelConfig(bc.MinPrice, bc.MaxPrice), rng.ForSubsystem(sim.SubsystemAuction))
	if err != nil {
		return nil, err
	}
	client, err := gateway.NewClient(cfg.OptimizerURL, cfg.GatewayTimeout)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	recorder := trace.NewRecorder()

	loop, err := sim.NewLoop(sim.LoopConfig{
		Context:       bc,
		Gateway:       client,
		Model:         model,
		Recorder:      recorder,
		Metrics:       m,
		MaxIterations: cfg.MaxRequests,
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("Starting simulation: context=%s optimizer=%s seed=%d", bc.Name, cfg.OptimizerURL, cfg.Seed)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	viewCtx, stopViews := context.WithCancel(gctx)
	defer stopViews()
	g.Go(func() error {
		defer stopViews()
		return loop.Run(gctx)
	})
	if cfg.ViewAddr != "" {
		server := view.NewServer(model, recorder, m)
		g.Go(func() error {
			return server.Serve(viewCtx, cfg.ViewAddr)
		})
	}
	runErr := g.Wait()
	logrus.Infof("Simulation finished after %d requests in %s", loop.Iterations(), time.Since(startTime).Round(time.Millisecond))

	records := recorder.Records()
	if cfg.traceEnabled() {
		header := &trace.Header{
			Version:     traceVersion,
			CreatedAt:   startTime.UTC().Format(time.RFC3339),
			Context:     bc.Name,
			ContextHash: bc.Hash(),
			Optimizer:   cfg.OptimizerURL,
			Seed:        cfg.Seed,
			GridSize:    len(model.Prices()),
			Regenerate:  cfg.RegenerateEvery,
			OutOfDomain: cfg.OutOfDomain.String(),
		}
		if err := trace.Export(header, records, cfg.TraceHeaderPath, cfg.TraceDataPath); err != nil {
			logrus.Errorf("Writing trace: %v", err)
		} else {
			logrus.Infof("Trace written to %s and %s", cfg.TraceHeaderPath, cfg.TraceDataPath)
		}
	}
	return trace.Summarize(records), runErr
}

// printSummary writes the run summary as indented JSON.
func printSummary(w io.Writer, s *trace.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "=== Simulation Summary ===\n%s\n", data)
	return err
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd.Flags())
	contextsCmd.Flags().String(keyContexts, "contexts.yaml", "Path to the bidding contexts YAML file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(contextsCmd)
}
