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
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/snowdrift/blockfrost/blockfrosttest"
	"github.com/blinklabs-io/snowdrift/internal/config"
	"github.com/spf13/cobra"
)

func mockIndexerRun(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	fixturePath string,
	listenAddress string,
) error {
	if fixturePath == "" {
		return errors.New("--fixture is required")
	}
	fixture, err := blockfrosttest.LoadFixture(fixturePath)
	if err != nil {
		return err
	}
	stopMetrics := startMetrics(cfg, logger)
	server := blockfrosttest.New(
		blockfrosttest.Config{
			ListenAddress: listenAddress,
			ProjectID:     cfg.ProjectId,
		},
		fixture,
		logger,
	)
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	if err := server.Start(signalCtx); err != nil {
		return err
	}
	<-signalCtx.Done()
	logger.Info("signal received, shutting down mock indexer")
	//nolint:contextcheck
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := stopMetrics(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	return server.Stop(shutdownCtx)
}

func mockIndexerCommand() *cobra.Command {
	var fixturePath, listenAddress string
	cmd := &cobra.Command{
		Use:   "mock-indexer",
		Short: "Serve a synthetic indexer from a YAML fixture for local testing",
		Args:  cobra.NoArgs,
		Run: runWithConfig(func(cmd *cobra.Command, _ []string, cfg *config.Config, logger *slog.Logger) error {
			return mockIndexerRun(cmd.Context(), cfg, logger, fixturePath, listenAddress)
		}),
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to the YAML fixture")
	cmd.Flags().StringVar(&listenAddress, "listen", ":3000", "listen address")
	return cmd
}
