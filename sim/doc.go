// Package sim provides the bidding loop of the RTB client simulator.
//
// # Reading Guide
//
// Start with these files:
//   - loop.go: one iteration is pace, request, triage, auction, feedback
//   - pacer.go: replays the recorded gaps between scheduled bids
//   - rng.go: per-subsystem random sources derived from one seed
//
// # Architecture
//
// The sim package defines the loop and the interfaces it consumes;
// implementations live in sub-packages:
//   - sim/auction/: simulated market (price grid, winning curve, views)
//   - sim/gateway/: HTTP client for the bid optimization service
//   - sim/bidctx/: bidding contexts and their price schedules
//   - sim/trace/: per-request records, summary and export
//   - sim/metrics/: Prometheus collectors for the loop
//   - sim/view/: read-only HTTP views over a running simulation
//
// # Key Interfaces
//
//   - BidGateway: request an optimized price, report an impression
//   - AuctionModel: resolve whether a price wins
package sim
