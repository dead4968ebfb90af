package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	optimizePath = "/optimize"
	feedbackPath = "/feedback"
)

// Client talks to the optimization service. Calls are synchronous and never
// return errors: failures are folded into the returned values.
type Client struct {
	baseURL    string
	httpClient *http.Client
	optimize   *validator
	feedback   *validator
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("optimizer base URL is required")
	}
	optimize, err := newValidator(optimizePath, optimizeResponseSchema)
	if err != nil {
		return nil, err
	}
	feedback, err := newValidator(feedbackPath, feedbackResponseSchema)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		optimize:   optimize,
		feedback:   feedback,
	}, nil
}

// RequestBid asks the optimizer for a price. Any failure yields the sentinel
// response with status "error".
func (c *Client) RequestBid(ctx context.Context, req BidRequest) BidResponse {
	body, err := c.post(ctx, optimizePath, req)
	if err != nil {
		return failed(err)
	}

	var resp optimizeResponse
	if err := c.optimize.decode(body, &resp); err != nil {
		return failed(err)
	}
	return BidResponse{
		ID:             req.ID,
		CandidatePrice: req.Price,
		OptimizedPrice: resp.OptimizedPrice,
		Status:         resp.Status,
	}
}

// ReportOutcome sends an impression outcome for a previous request and reports
// whether the optimizer acknowledged it. Feedback is best-effort.
func (c *Client) ReportOutcome(ctx context.Context, requestID string, price float64, won bool) bool {
	body, err := c.post(ctx, feedbackPath, feedbackRequest{ID: requestID, Price: price, Impression: won})
	if err != nil {
		logrus.Warnf("gateway: feedback for %s: %v", requestID, err)
		return false
	}

	var resp feedbackResponse
	if err := c.feedback.decode(body, &resp); err != nil {
		logrus.Warnf("gateway: feedback for %s: %v", requestID, err)
		return false
	}
	return resp.Ack
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &TransportError{Endpoint: path, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: path, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
