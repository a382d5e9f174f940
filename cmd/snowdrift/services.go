// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package main

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/blinklabs-io/snowdrift/blockfrost"
	"github.com/blinklabs-io/snowdrift/chainstate"
	"github.com/blinklabs-io/snowdrift/internal/config"
	"github.com/blinklabs-io/snowdrift/transport"
	"github.com/blinklabs-io/snowdrift/txsubmit"
	"github.com/blinklabs-io/snowdrift/utxo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const shutdownTimeout = 30 * time.Second

// services holds the indexer clients built from the config.
type services struct {
	logger    *slog.Logger
	client    *blockfrost.Client
	chain     *chainstate.State
	fetcher   *utxo.Fetcher
	submitter *txsubmit.Submitter
}

func newServices(
	cfg *config.Config,
	logger *slog.Logger,
	registry prometheus.Registerer,
) (*services, error) {
	rootCAs, err := loadRootCAs(cfg.TlsCaFile)
	if err != nil {
		return nil, err
	}
	tr := transport.New(transport.Config{
		Logger:       logger,
		PromRegistry: registry,
		RootCAs:      rootCAs,
		TLSMode:      cfg.TLSMode(),
		Timeout:      cfg.TimeoutDuration(),
	})
	baseURL, err := cfg.IndexerURL()
	if err != nil {
		return nil, err
	}
	if cfg.ProjectId == "" {
		logger.Warn(
			"no project id configured, the indexer may reject requests",
			"component", programName,
		)
	}
	client, err := blockfrost.NewClient(blockfrost.ClientConfig{
		Sender:    tr,
		Logger:    logger,
		BaseURL:   baseURL,
		ProjectID: cfg.ProjectId,
		Timeout:   cfg.TimeoutDuration(),
	})
	if err != nil {
		return nil, err
	}
	chain, err := chainstate.New(chainstate.Config{
		Source:       client,
		Logger:       logger,
		PromRegistry: registry,
	})
	if err != nil {
		return nil, err
	}
	fetcher, err := utxo.New(utxo.Config{
		Source:      client,
		Logger:      logger,
		PageSize:    cfg.PageSize,
		MaxPages:    cfg.MaxPages,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return nil, err
	}
	submitter, err := txsubmit.New(txsubmit.Config{
		Indexer: client,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return &services{
		logger:    logger,
		client:    client,
		chain:     chain,
		fetcher:   fetcher,
		submitter: submitter,
	}, nil
}

// loadRootCAs returns the system pool extended with the PEM
// certificates in caFile, or nil when caFile is empty.
func loadRootCAs(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, nil
	}
	pemData, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS CA file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("no certificates found in TLS CA file %s", caFile)
	}
	return pool, nil
}

// setupTracing installs a global tracer provider. Spans go to
// an OTLP HTTP endpoint configured with the OTEL_EXPORTER_OTLP_*
// env vars, or to stdout.
func setupTracing(
	ctx context.Context,
	cfg *config.Config,
) (func(context.Context) error, error) {
	if !cfg.Tracing {
		return func(context.Context) error { return nil }, nil
	}
	var exporter sdktrace.SpanExporter
	var err error
	if cfg.TracingStdout {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = otlptracehttp.New(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(
			resource.NewSchemaless(
				attribute.String("service.name", programName),
			),
		),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// startMetrics serves the default prometheus registry when a
// metrics port is configured.
func startMetrics(
	cfg *config.Config,
	logger *slog.Logger,
) func(context.Context) error {
	if cfg.MetricsPort == 0 {
		return func(context.Context) error { return nil }
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	logger.Info(
		fmt.Sprintf("serving prometheus metrics on :%d", cfg.MetricsPort),
		"component", programName,
	)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", programName,
			)
		}
	}()
	return metricsServer.Shutdown
}

// withServices sets up tracing, metrics and the indexer
// clients around run.
func withServices(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	run func(ctx context.Context, svc *services) error,
) error {
	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	stopMetrics := startMetrics(cfg, logger)
	defer func() {
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := stopMetrics(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()
	svc, err := newServices(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	return run(ctx, svc)
}
