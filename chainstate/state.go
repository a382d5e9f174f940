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

// Package chainstate keeps a refreshable snapshot of the
// protocol parameters and chain tip reported by the indexer.
package chainstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/snowdrift/blockfrost"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var ErrNotRefreshed = errors.New("chain state has not been refreshed")

// Source reads the two documents a snapshot is built from.
// *blockfrost.Client satisfies it.
type Source interface {
	LatestEpochParameters(ctx context.Context) (blockfrost.ProtocolParamsResponse, error)
	LatestBlock(ctx context.Context) (blockfrost.BlockResponse, error)
}

// Config configures a State.
type Config struct {
	Source       Source
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// State owns the current Snapshot. Readers never observe a
// partially refreshed snapshot.
type State struct {
	source    Source
	logger    *slog.Logger
	metrics   *Metrics
	snapshot  atomic.Pointer[Snapshot]
	refreshMu sync.Mutex
	now       func() time.Time
}

// New creates a State with no snapshot. Call Refresh before
// reading it.
func New(cfg Config) (*State, error) {
	if cfg.Source == nil {
		return nil, errors.New("chain state source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metrics := &Metrics{}
	metrics.Register(cfg.PromRegistry)
	return &State{
		source:  cfg.Source,
		logger:  cfg.Logger.With("component", "chainstate"),
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Refresh reads the latest protocol parameters and tip and
// replaces the snapshot with one built from both. If either
// read fails the previous snapshot is kept.
func (s *State) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var params blockfrost.ProtocolParamsResponse
	var block blockfrost.BlockResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		params, err = s.source.LatestEpochParameters(gctx)
		if err != nil {
			return fmt.Errorf("fetch protocol parameters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		block, err = s.source.LatestBlock(gctx)
		if err != nil {
			return fmt.Errorf("fetch latest block: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.refreshFailed()
		s.logger.Warn(
			"chain state refresh failed, keeping previous snapshot",
			"error", err,
		)
		return Snapshot{}, err
	}
	snap, err := newSnapshot(params, block, s.now())
	if err != nil {
		s.metrics.refreshFailed()
		s.logger.Warn(
			"invalid protocol parameters, keeping previous snapshot",
			"error", err,
		)
		return Snapshot{}, fmt.Errorf("build snapshot: %w", err)
	}
	s.snapshot.Store(snap)
	s.metrics.observe(snap)
	s.logger.Debug(
		"chain state refreshed",
		"epoch", snap.Epoch,
		"slot", snap.Tip.Slot,
		"block", snap.Tip.Hash,
	)
	return snap.clone(), nil
}

// Current returns the latest snapshot. The boolean is false
// until the first successful Refresh.
func (s *State) Current() (Snapshot, bool) {
	snap := s.snapshot.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return snap.clone(), true
}

// Get returns the latest snapshot or ErrNotRefreshed.
func (s *State) Get() (Snapshot, error) {
	snap, ok := s.Current()
	if !ok {
		return Snapshot{}, ErrNotRefreshed
	}
	return snap, nil
}
