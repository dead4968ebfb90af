// Package gateway is the HTTP contract with the price-optimization service:
// POST /optimize for a price decision and POST /feedback for auction outcomes.
package gateway

import "fmt"

// Response statuses the loop branches on. Any other status needs no auction.
const (
	StatusError     = "error"
	StatusExplored  = "explored"
	StatusExploited = "exploited"
)

// BidRequest is the /optimize request body.
type BidRequest struct {
	ID          string  `json:"id"`
	Price       float64 `json:"price"`
	FloorPrice  float64 `json:"floor_price"`
	DataCenter  string  `json:"data_center"`
	PublisherID string  `json:"app_publisher_id"`
	BundleID    string  `json:"bundle_id"`
	TagID       string  `json:"tag_id"`
	Country     string  `json:"device_geo_country"`
	AdFormat    string  `json:"ext_ad_format"`
}

type optimizeResponse struct {
	OptimizedPrice float64 `json:"optimized_price"`
	Status         string  `json:"status"`
}

type feedbackRequest struct {
	ID         string  `json:"id"`
	Price      float64 `json:"price"`
	Impression bool    `json:"impression"`
}

type feedbackResponse struct {
	Ack bool `json:"ack"`
}

// BidResponse is the outcome of a BidRequest. On failure it is the sentinel
// value (empty ID, zero prices, StatusError) with Err describing why.
type BidResponse struct {
	ID             string
	CandidatePrice float64
	OptimizedPrice float64
	Status         string
	Err            error
}

func failed(err error) BidResponse {
	return BidResponse{Status: StatusError, Err: err}
}

// TransportError covers network failures and non-200 responses.
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a 200 response whose body does not match the
// expected shape.
type MalformedResponseError struct {
	Endpoint string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Endpoint, e.Reason)
}
