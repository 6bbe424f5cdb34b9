// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server hosts one accumulator behind a small HTTP API.
//
// # Routes
//
//   - POST /v1/observations records a batch of values.
//   - GET /v1/summary returns the current Summary.
//   - GET /metrics serves the server's own Prometheus registry.
//   - GET /health is a liveness probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/statcell/pkg/stat"
	"github.com/AleutianAI/statcell/pkg/telemetry"
)

// ErrNilAccumulator is returned by New when given a nil accumulator.
var ErrNilAccumulator = errors.New("server: nil accumulator")

// serviceName names the server in request spans.
const serviceName = "statcell"

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Accumulator is the part of *stat.Accumulator the server uses.
type Accumulator interface {
	Record(n int32) error
	Count() int32
	Snapshot() (stat.Summary, bool)
}

// Options configures a Server.
type Options struct {
	// MaxBatch caps values per request. Zero or anything above MaxBatch
	// means MaxBatch.
	MaxBatch int

	// Logger receives request and lifecycle records. Nil uses slog.Default().
	Logger *slog.Logger

	// Registry is served on /metrics. Nil creates a fresh registry. Passing
	// one lets the caller bridge OTel instruments onto the same endpoint.
	Registry *prometheus.Registry
}

// Server is the HTTP host around one accumulator.
//
// # Thread Safety
//
// Handlers run concurrently; the accumulator is the only shared state they
// write.
type Server struct {
	acc      Accumulator
	registry *prometheus.Registry
	router   *gin.Engine
	logger   *slog.Logger
	maxBatch int

	requests *prometheus.CounterVec
}

// New builds a Server and its routes.
//
// The server registers a telemetry.Collector for acc and its own request
// counter on opts.Registry.
func New(acc Accumulator, opts Options) (*Server, error) {
	if acc == nil || isNilAccumulator(acc) {
		return nil, ErrNilAccumulator
	}
	if opts.MaxBatch <= 0 || opts.MaxBatch > MaxBatch {
		opts.MaxBatch = MaxBatch
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if err := reg.Register(telemetry.NewCollector(acc, telemetry.CollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}

	s := &Server{
		acc:      acc,
		registry: reg,
		logger:   opts.Logger,
		maxBatch: opts.MaxBatch,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "statcell",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), s.instrument())
	s.registerRoutes(router)
	s.router = router
	return s, nil
}

func (s *Server) registerRoutes(router *gin.Engine) {
	v1 := router.Group("/v1")
	{
		v1.POST("/observations", s.HandleObservations)
		v1.GET("/summary", s.HandleSummary)
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})))
	router.GET("/health", s.HandleHealth)
}

// Registry is the Prometheus registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting statcell server", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down statcell server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// instrument counts requests and logs failures.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()

		if code >= http.StatusInternalServerError {
			s.logger.Error("Request failed",
				slog.String("route", route),
				slog.Int("status", code),
				slog.Duration("latency", time.Since(start)),
			)
		}
	}
}

func isNilAccumulator(acc Accumulator) bool {
	a, ok := acc.(*stat.Accumulator)
	return ok && a == nil
}
