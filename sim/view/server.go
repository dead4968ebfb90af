// Package view serves read-only HTTP views of a running simulation: the
// simulated market, the run summary and the Prometheus metrics.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/bidsim/bidsim/sim/auction"
	"github.com/bidsim/bidsim/sim/metrics"
	"github.com/bidsim/bidsim/sim/trace"
)

const shutdownTimeout = 5 * time.Second

// ModelView is the read side of an auction model.
type ModelView interface {
	Snapshot() auction.Snapshot
}

// Server exposes the views. It never mutates what it reads.
type Server struct {
	model    ModelView
	recorder *trace.Recorder
	metrics  *metrics.Metrics
}

// NewServer creates a Server. recorder and m may be nil.
func NewServer(model ModelView, recorder *trace.Recorder, m *metrics.Metrics) *Server {
	return &Server{model: model, recorder: recorder, metrics: m}
}

// Handler returns the gzip-wrapped router.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/healthz", s.healthz)
	router.GET("/model", s.modelSnapshot)
	router.GET("/summary", s.summary)
	if s.metrics != nil {
		router.Handler(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return gziphandler.GzipHandler(router)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("view: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) modelSnapshot(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, s.model.Snapshot())
}

func (s *Server) summary(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, trace.Summarize(s.recorder.Records()))
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logrus.Debugf("view: writing response: %v", err)
	}
}
