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

// Package utxo paginates through the UTXO sets of one or many
// addresses and builds typed Utxo values from them.
package utxo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/blinklabs-io/snowdrift/balance"
	"github.com/blinklabs-io/snowdrift/blockfrost"
)

const (
	DefaultPageSize    = blockfrost.MaxPaginationCount
	DefaultMaxPages    = 1000
	DefaultConcurrency = 4
)

var (
	ErrNotFound  = errors.New("no matching utxo found")
	ErrPageLimit = errors.New("page limit reached")
)

// Source fetches one page of an address's UTXOs.
// *blockfrost.Client satisfies it.
type Source interface {
	AddressUtxos(
		ctx context.Context,
		address string,
		asset string,
		params blockfrost.PaginationParams,
	) ([]blockfrost.UtxoResponse, error)
}

// Utxo is one spendable output. Its identity is the
// transaction hash and output index.
type Utxo struct {
	TxHash              string
	OutputIndex         uint32
	Address             string
	Balance             balance.Balance
	Block               string
	DataHash            string
	InlineDatum         string
	ReferenceScriptHash string
}

// Id returns "<tx hash>#<output index>".
func (u Utxo) Id() string {
	return fmt.Sprintf("%s#%d", u.TxHash, u.OutputIndex)
}

// UtxoError reports a single UTXO whose amounts could not be
// aggregated. Iteration continues after it.
type UtxoError struct {
	TxHash      string
	OutputIndex uint32
	Err         error
}

func (e *UtxoError) Error() string {
	return fmt.Sprintf("utxo %s#%d: %v", e.TxHash, e.OutputIndex, e.Err)
}

func (e *UtxoError) Unwrap() error {
	return e.Err
}

// Config configures a Fetcher.
type Config struct {
	Source      Source
	Logger      *slog.Logger
	PageSize    int
	MaxPages    int
	Concurrency int
	// Order is "asc" or "desc" and defaults to "desc"
	Order string
}

// Fetcher reads UTXO sets from a Source.
type Fetcher struct {
	source      Source
	logger      *slog.Logger
	pageSize    int
	maxPages    int
	concurrency int
	order       string
}

// New creates a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Source == nil {
		return nil, errors.New("utxo source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PageSize <= 0 || cfg.PageSize > blockfrost.MaxPaginationCount {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	switch cfg.Order {
	case blockfrost.DefaultPaginationOrderAsc, blockfrost.PaginationOrderDesc:
	case "":
		cfg.Order = blockfrost.PaginationOrderDesc
	default:
		return nil, fmt.Errorf("invalid utxo order: %q", cfg.Order)
	}
	return &Fetcher{
		source:      cfg.Source,
		logger:      cfg.Logger.With("component", "utxo"),
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		concurrency: cfg.Concurrency,
		order:       cfg.Order,
	}, nil
}

// ForAddress lazily pages through the UTXOs of address,
// filtered to asset when it is not empty. Pages are requested
// until one comes back short. A *UtxoError is yielded for a
// malformed entry and iteration continues; any other error
// ends the sequence, including ErrPageLimit when the page cap
// is reached. Each call starts again from page 1.
func (f *Fetcher) ForAddress(
	ctx context.Context,
	address string,
	asset string,
) iter.Seq2[Utxo, error] {
	return func(yield func(Utxo, error) bool) {
		for page := 1; ; page++ {
			if page > f.maxPages {
				yield(Utxo{}, fmt.Errorf(
					"%w: %d pages of %d for address %s",
					ErrPageLimit,
					f.maxPages,
					f.pageSize,
					address,
				))
				return
			}
			entries, err := f.source.AddressUtxos(
				ctx,
				address,
				asset,
				blockfrost.PaginationParams{
					Count: f.pageSize,
					Page:  page,
					Order: f.order,
				},
			)
			if err != nil {
				yield(Utxo{}, fmt.Errorf(
					"fetch utxo page %d for address %s: %w",
					page,
					address,
					err,
				))
				return
			}
			for _, entry := range entries {
				u, err := newUtxo(address, entry)
				if !yield(u, err) {
					return
				}
			}
			if len(entries) < f.pageSize {
				return
			}
		}
	}
}

func newUtxo(address string, entry blockfrost.UtxoResponse) (Utxo, error) {
	amounts := make([]balance.Amount, 0, len(entry.Amount))
	for _, a := range entry.Amount {
		amounts = append(amounts, balance.Amount{
			Unit:     a.Unit,
			Quantity: a.Quantity,
		})
	}
	bal, err := balance.Aggregate(amounts)
	if err != nil {
		return Utxo{}, &UtxoError{
			TxHash:      entry.TxHash,
			OutputIndex: entry.OutputIndex,
			Err:         err,
		}
	}
	if entry.Address != "" {
		address = entry.Address
	}
	return Utxo{
		TxHash:              entry.TxHash,
		OutputIndex:         entry.OutputIndex,
		Address:             address,
		Balance:             bal,
		Block:               entry.Block,
		DataHash:            deref(entry.DataHash),
		InlineDatum:         deref(entry.InlineDatum),
		ReferenceScriptHash: deref(entry.ReferenceScriptHash),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// First returns the first UTXO of address holding asset in
// the fetcher's order. It fails with ErrNotFound when the
// filtered set is empty.
func (f *Fetcher) First(
	ctx context.Context,
	address string,
	asset string,
) (Utxo, error) {
	for u, err := range f.ForAddress(ctx, address, asset) {
		if err != nil {
			var utxoErr *UtxoError
			if errors.As(err, &utxoErr) {
				f.logger.Warn(
					"skipping malformed utxo",
					"address", address,
					"utxo", fmt.Sprintf("%s#%d", utxoErr.TxHash, utxoErr.OutputIndex),
					"error", utxoErr.Err,
				)
				continue
			}
			return Utxo{}, err
		}
		return u, nil
	}
	return Utxo{}, fmt.Errorf(
		"%w: address %s, asset %q",
		ErrNotFound,
		address,
		asset,
	)
}
