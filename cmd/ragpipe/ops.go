package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/metrics"
	chiTransport "github.com/kailas-cloud/ragpipe/internal/transport/chi"
)

// startOps serves /metrics, /healthz and /records on cfg.Ops.MetricsAddr until the returned
// stop function is called. It is a no-op when no address is configured.
func startOps(s *session) func() {
	addr := s.cfg.Ops.MetricsAddr
	if addr == "" {
		return func() {}
	}

	metrics.RegisterOpsMetrics()

	// Pass a nil interface when records are disabled.
	var records chiTransport.RecordReader
	if s.app.Records != nil {
		records = s.app.Records
	}
	server := chiTransport.NewServer(s.app.Health, records, s.logger)

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(s.cfg.Ops.APIKeys),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("Starting ops listener", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ops listener error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Ops.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("Error during ops shutdown", zap.Error(err))
		}
	}
}
