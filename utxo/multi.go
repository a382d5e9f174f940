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

package utxo

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Failure is one problem seen during a multi-address fetch.
// Utxo is empty when the whole address was skipped.
type Failure struct {
	Address string
	Utxo    string
	Err     error
}

func (f Failure) Error() string {
	if f.Utxo != "" {
		return fmt.Sprintf("address %s utxo %s: %v", f.Address, f.Utxo, f.Err)
	}
	return fmt.Sprintf("address %s: %v", f.Address, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of ForAddresses.
type Result struct {
	Utxos    []Utxo
	Failures []Failure
}

// Err joins every failure, or returns nil when there were
// none.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type addressResult struct {
	utxos    []Utxo
	failures []Failure
}

// ForAddresses fetches every address with bounded
// parallelism. An address whose fetch fails is logged,
// reported in Result.Failures and skipped, and its partial
// results are discarded. A malformed UTXO is reported the same
// way without affecting its siblings. Utxos follow the order
// of addresses.
func (f *Fetcher) ForAddresses(
	ctx context.Context,
	addresses []string,
) Result {
	return f.ForAddressesWithAsset(ctx, addresses, "")
}

// ForAddressesWithAsset is ForAddresses restricted to the UTXOs
// holding asset.
func (f *Fetcher) ForAddressesWithAsset(
	ctx context.Context,
	addresses []string,
	asset string,
) Result {
	results := make([]addressResult, len(addresses))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, address := range addresses {
		g.Go(func() error {
			results[i] = f.collect(ctx, address, asset)
			return nil
		})
	}
	// Workers report failures in their results
	_ = g.Wait()

	var ret Result
	for _, r := range results {
		ret.Utxos = append(ret.Utxos, r.utxos...)
		ret.Failures = append(ret.Failures, r.failures...)
	}
	f.logger.Debug(
		"fetched utxos",
		"addresses", len(addresses),
		"utxos", len(ret.Utxos),
		"failures", len(ret.Failures),
	)
	return ret
}

func (f *Fetcher) collect(
	ctx context.Context,
	address string,
	asset string,
) addressResult {
	var ret addressResult
	for u, err := range f.ForAddress(ctx, address, asset) {
		if err == nil {
			ret.utxos = append(ret.utxos, u)
			continue
		}
		var utxoErr *UtxoError
		if errors.As(err, &utxoErr) {
			f.logger.Error(
				"malformed utxo skipped",
				"address", address,
				"utxo", fmt.Sprintf("%s#%d", utxoErr.TxHash, utxoErr.OutputIndex),
				"error", utxoErr.Err,
			)
			ret.failures = append(ret.failures, Failure{
				Address: address,
				Utxo:    fmt.Sprintf("%s#%d", utxoErr.TxHash, utxoErr.OutputIndex),
				Err:     utxoErr.Err,
			})
			continue
		}
		f.logger.Warn(
			"failed to fetch utxos, skipping address",
			"address", address,
			"error", err,
		)
		return addressResult{
			failures: append(ret.failures, Failure{
				Address: address,
				Err:     err,
			}),
		}
	}
	return ret
}
