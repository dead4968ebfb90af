package view

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidsim/bidsim/sim/auction"
	"github.com/bidsim/bidsim/sim/metrics"
	"github.com/bidsim/bidsim/sim/trace"
)

func newTestServer(t *testing.T) (*httptest.Server, *auction.Model, *trace.Recorder, *metrics.Metrics) {
	t.Helper()
	model, err := auction.NewModel(auction.Config{MinPrice: 0, MaxPrice: 1, GridSize: 5}, rand.NewPCG(1, 2))
	require.NoError(t, err)
	rec := trace.NewRecorder()
	m := metrics.New()
	srv := httptest.NewServer(NewServer(model, rec, m).Handler())
	t.Cleanup(srv.Close)
	return srv, model, rec, m
}

func TestServer_Model_ReturnsSnapshot(t *testing.T) {
	srv, model, _, _ := newTestServer(t)
	_, err := model.Step(0.5)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/model")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got auction.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, model.Prices(), got.Prices)
	assert.Equal(t, model.Curve(), got.Curve)
	assert.Equal(t, int64(1), got.Steps)
}

func TestServer_Summary(t *testing.T) {
	srv, _, rec, _ := newTestServer(t)
	rec.Add(trace.Record{Status: "explored", Auctioned: true, Won: true, OptimizedPrice: 0.4})
	rec.Add(trace.Record{Status: "error"})

	resp, err := http.Get(srv.URL + "/summary")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 2.0, got["requests"])
	assert.Equal(t, 1.0, got["wins"])
	assert.Equal(t, "0.4", got["spend"])
}

// getRaw fetches path asking for gzip without the transport's transparent
// decompression, and returns the decoded body and whether it was gzipped.
func getRaw(t *testing.T, url string) (string, bool) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body io.Reader = resp.Body
	gzipped := resp.Header.Get("Content-Encoding") == "gzip"
	if gzipped {
		zr, err := gzip.NewReader(resp.Body)
		require.NoError(t, err)
		body = zr
	}
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(data), gzipped
}

func TestServer_Model_LargeSnapshotIsGzipped(t *testing.T) {
	// GIVEN a default-size grid, whose snapshot is well above the gzip threshold
	model, err := auction.NewModel(auction.Config{MinPrice: 0, MaxPrice: 1}, rand.NewPCG(1, 2))
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(model, nil, nil).Handler())
	t.Cleanup(srv.Close)

	body, gzipped := getRaw(t, srv.URL+"/model")

	assert.True(t, gzipped)
	var got auction.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Len(t, got.Prices, auction.DefaultGridSize)
}

func TestServer_Metrics(t *testing.T) {
	srv, _, _, m := newTestServer(t)
	m.RecordBidRequest("explored")

	body, _ := getRaw(t, srv.URL+"/metrics")

	assert.Contains(t, body, `bidsim_bid_requests_total{status="explored"} 1`)
}

func TestServer_NoMetricsRouteWithoutMetrics(t *testing.T) {
	model, err := auction.NewModel(auction.Config{MinPrice: 0, MaxPrice: 1}, rand.NewPCG(1, 2))
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(model, nil, nil).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Serve_StopsOnCancel(t *testing.T) {
	model, err := auction.NewModel(auction.Config{MinPrice: 0, MaxPrice: 1}, rand.NewPCG(1, 2))
	require.NoError(t, err)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(model, nil, nil).Serve(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
