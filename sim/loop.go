package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bidsim/bidsim/sim/auction"
	"github.com/bidsim/bidsim/sim/bidctx"
	"github.com/bidsim/bidsim/sim/gateway"
	"github.com/bidsim/bidsim/sim/metrics"
	"github.com/bidsim/bidsim/sim/trace"
)

// BidGateway is the optimizer as seen by the loop.
type BidGateway interface {
	RequestBid(ctx context.Context, req gateway.BidRequest) gateway.BidResponse
	ReportOutcome(ctx context.Context, requestID string, price float64, won bool) bool
}

// AuctionModel resolves whether a price wins.
type AuctionModel interface {
	Step(price float64) (auction.Outcome, error)
}

// optimumReporter is implemented by models that know the true optimal price.
type optimumReporter interface {
	OptimalPrice() (float64, bool)
}

// LoopConfig wires a Loop. Context, Gateway and Model are required.
type LoopConfig struct {
	Context  *bidctx.Context
	Gateway  BidGateway
	Model    AuctionModel
	Clock    clock.Clock      // nil selects the wall clock
	Recorder *trace.Recorder  // optional
	Metrics  *metrics.Metrics // optional
	NewID    func() string    // nil selects random 32-hex-digit ids

	// MaxIterations stops the loop after that many iterations; 0 runs until
	// the context is cancelled.
	MaxIterations int
}

// Loop drives one simulated bidder: pace, request, triage, auction, feedback.
// A Loop and its Model must not be shared with another running Loop.
type Loop struct {
	bctx       *bidctx.Context
	gateway    BidGateway
	model      AuctionModel
	pacer      *Pacer
	recorder   *trace.Recorder
	metrics    *metrics.Metrics
	newID      func() string
	maxIter    int
	iterations int
}

// NewLoop validates cfg and creates a Loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	switch {
	case cfg.Context == nil:
		return nil, errors.New("loop: context is required")
	case cfg.Gateway == nil:
		return nil, errors.New("loop: gateway is required")
	case cfg.Model == nil:
		return nil, errors.New("loop: auction model is required")
	case cfg.MaxIterations < 0:
		return nil, fmt.Errorf("loop: max iterations %d is negative", cfg.MaxIterations)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClock()
	}
	if cfg.NewID == nil {
		cfg.NewID = newRequestID
	}
	return &Loop{
		bctx:     cfg.Context,
		gateway:  cfg.Gateway,
		model:    cfg.Model,
		pacer:    NewPacer(cfg.Clock),
		recorder: cfg.Recorder,
		metrics:  cfg.Metrics,
		newID:    cfg.NewID,
		maxIter:  cfg.MaxIterations,
	}, nil
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Iterations returns how many iterations have started.
func (l *Loop) Iterations() int {
	return l.iterations
}

// Run loops until ctx is cancelled or MaxIterations is reached, returning nil
// in both cases. It returns an error only for fatal conditions: an
// *InvariantViolationError, or an auction error such as
// *auction.OutOfDomainError under the fail policy.
func (l *Loop) Run(ctx context.Context) error {
	logrus.Infof("loop: starting context %q (hash %s)", l.bctx.Name, l.bctx.Hash())
	for {
		if ctx.Err() != nil {
			logrus.Infof("loop: stopped after %d iterations", l.iterations)
			return nil
		}
		if l.maxIter > 0 && l.iterations >= l.maxIter {
			logrus.Infof("loop: reached %d iterations", l.iterations)
			return nil
		}
		l.iterations++

		if err := l.iterate(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return err
		}
	}
}

func (l *Loop) iterate(ctx context.Context) error {
	price, ts := l.bctx.Next()
	delay, err := l.pacer.Wait(ctx, ts)
	if err != nil {
		return err
	}
	l.metrics.RecordPacingDelay(delay)

	id := l.newID()
	rec := trace.Record{RequestID: id, ScheduledMs: ts, CandidatePrice: price}
	defer func() { l.recorder.Add(rec) }()

	resp := l.gateway.RequestBid(ctx, l.bidRequest(id, price))
	rec.Status = resp.Status
	rec.OptimizedPrice = resp.OptimizedPrice
	l.metrics.RecordBidRequest(resp.Status)

	if resp.Status == gateway.StatusError {
		if resp.Err != nil {
			rec.Error = resp.Err.Error()
		}
		logrus.Debugf("loop: request %s: status error: %v", id, resp.Err)
		return nil
	}
	if resp.OptimizedPrice > price {
		l.metrics.RecordInvariantViolation()
		verr := &InvariantViolationError{RequestID: id, CandidatePrice: price, OptimizedPrice: resp.OptimizedPrice}
		rec.Error = verr.Error()
		return verr
	}
	if resp.Status != gateway.StatusExplored {
		return nil
	}

	outcome, err := l.model.Step(resp.OptimizedPrice)
	if err != nil {
		rec.Error = err.Error()
		return fmt.Errorf("auction for request %s: %w", id, err)
	}
	l.metrics.RecordAuction(outcome.String())
	if outcome == auction.NoDecision {
		return nil
	}
	rec.Auctioned = true
	rec.Won = outcome == auction.Won
	if opt, ok := l.model.(optimumReporter); ok {
		rec.OptimalPrice, rec.HasOptimal = opt.OptimalPrice()
	}

	if !rec.Won {
		return nil
	}
	rec.FeedbackAcked = l.gateway.ReportOutcome(ctx, id, resp.OptimizedPrice, true)
	l.metrics.RecordFeedback(rec.FeedbackAcked)
	if !rec.FeedbackAcked {
		logrus.Debugf("loop: feedback for %s not acknowledged", id)
	}
	return nil
}

func (l *Loop) bidRequest(id string, price float64) gateway.BidRequest {
	return gateway.BidRequest{
		ID:          id,
		Price:       price,
		FloorPrice:  l.bctx.FloorPrice,
		DataCenter:  l.bctx.DataCenter,
		PublisherID: l.bctx.PublisherID,
		BundleID:    l.bctx.BundleID,
		TagID:       l.bctx.TagID,
		Country:     l.bctx.Country,
		AdFormat:    l.bctx.AdFormat,
	}
}
