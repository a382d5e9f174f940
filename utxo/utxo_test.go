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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/blinklabs-io/snowdrift/blockfrost"
	"github.com/blinklabs-io/snowdrift/blockfrost/blockfrosttest"
	"github.com/blinklabs-io/snowdrift/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testPolicy = "7eae28af2208be856f7a119668ae52a49b73725e326dc16579dcc373"

func testEntries(address string, count int) []blockfrost.UtxoResponse {
	ret := make([]blockfrost.UtxoResponse, 0, count)
	for i := range count {
		ret = append(ret, blockfrost.UtxoResponse{
			Address:     address,
			TxHash:      fmt.Sprintf("%064x", i),
			OutputIndex: uint32(i % 3),
			Amount: []blockfrost.AmountResponse{
				{Unit: "lovelace", Quantity: "2000000"},
				{Unit: testPolicy + "74657374", Quantity: "1"},
			},
		})
	}
	return ret
}

// fakeSource serves per-address pages from memory
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	// pages returns the entries for one page request
	pages func(address string, params blockfrost.PaginationParams) ([]blockfrost.UtxoResponse, error)
}

func (s *fakeSource) AddressUtxos(
	ctx context.Context,
	address string,
	_ string,
	params blockfrost.PaginationParams,
) ([]blockfrost.UtxoResponse, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[address]++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.pages(address, params)
}

func (s *fakeSource) Calls(address string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[address]
}

// staticPages slices a fixed set the way the indexer does
func staticPages(sets map[string][]blockfrost.UtxoResponse) *fakeSource {
	return &fakeSource{
		pages: func(address string, params blockfrost.PaginationParams) ([]blockfrost.UtxoResponse, error) {
			set := sets[address]
			start := (params.Page - 1) * params.Count
			if start >= len(set) {
				return nil, nil
			}
			return set[start:min(start+params.Count, len(set))], nil
		},
	}
}

func newTestFetcher(t *testing.T, cfg Config) *Fetcher {
	t.Helper()
	f, err := New(cfg)
	require.NoError(t, err)
	return f
}

func TestNewDefaults(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	f := newTestFetcher(t, Config{Source: staticPages(nil), PageSize: 500})
	assert.Equal(t, DefaultPageSize, f.pageSize)
	assert.Equal(t, DefaultMaxPages, f.maxPages)
	assert.Equal(t, DefaultConcurrency, f.concurrency)
	assert.Equal(t, blockfrost.PaginationOrderDesc, f.order)

	_, err = New(Config{Source: staticPages(nil), Order: "random"})
	assert.Error(t, err)
}

func TestForAddressPagination(t *testing.T) {
	const address = "addr_test1vpaging"
	fixture := &blockfrosttest.Fixture{
		Utxos: map[string][]blockfrost.UtxoResponse{
			address: testEntries(address, 237),
		},
	}
	mock := blockfrosttest.New(blockfrosttest.Config{}, fixture, nil)
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()
	client, err := blockfrost.NewClient(blockfrost.ClientConfig{
		BaseURL: srv.URL + blockfrosttest.DefaultPathPrefix,
	})
	require.NoError(t, err)

	f := newTestFetcher(t, Config{Source: client})
	var utxos []Utxo
	for u, err := range f.ForAddress(t.Context(), address, "") {
		require.NoError(t, err)
		utxos = append(utxos, u)
	}
	assert.Len(t, utxos, 237)
	assert.Equal(t, 3, mock.Requests("/api/v0/addresses/"+address+"/utxos"))

	// Descending order by default
	assert.Equal(t, fmt.Sprintf("%064x", 236), utxos[0].TxHash)
	assert.Equal(t, uint64(2000000), utxos[0].Balance.Lovelace)
	require.Len(t, utxos[0].Balance.Assets, 1)
	assert.Equal(t, []byte("test"), utxos[0].Balance.Assets[0].Name)
}

func TestForAddressExactMultipleOfPageSize(t *testing.T) {
	src := staticPages(map[string][]blockfrost.UtxoResponse{
		"addr": testEntries("addr", 200),
	})
	f := newTestFetcher(t, Config{Source: src})
	count := 0
	for _, err := range f.ForAddress(t.Context(), "addr", "") {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 200, count)
	// The third, empty page ends the walk
	assert.Equal(t, 3, src.Calls("addr"))
}

func TestForAddressPageLimit(t *testing.T) {
	src := &fakeSource{
		pages: func(address string, params blockfrost.PaginationParams) ([]blockfrost.UtxoResponse, error) {
			return testEntries(address, params.Count), nil
		},
	}
	f := newTestFetcher(t, Config{Source: src, MaxPages: 5})
	count := 0
	var lastErr error
	for _, err := range f.ForAddress(t.Context(), "addr", "") {
		if err != nil {
			lastErr = err
			continue
		}
		count++
	}
	assert.Equal(t, 500, count)
	assert.Equal(t, 5, src.Calls("addr"))
	assert.ErrorIs(t, lastErr, ErrPageLimit)
}

func TestForAddressStopsWhenConsumerBreaks(t *testing.T) {
	src := staticPages(map[string][]blockfrost.UtxoResponse{
		"addr": testEntries("addr", 300),
	})
	f := newTestFetcher(t, Config{Source: src})
	for _, err := range f.ForAddress(t.Context(), "addr", "") {
		require.NoError(t, err)
		break
	}
	assert.Equal(t, 1, src.Calls("addr"))
}

func TestForAddressMalformedEntry(t *testing.T) {
	entries := testEntries("addr", 3)
	entries[1].Amount = append(
		entries[1].Amount,
		blockfrost.AmountResponse{Unit: "abc", Quantity: "1"},
	)
	src := staticPages(map[string][]blockfrost.UtxoResponse{"addr": entries})
	f := newTestFetcher(t, Config{Source: src})

	var good []Utxo
	var bad []error
	for u, err := range f.ForAddress(t.Context(), "addr", "") {
		if err != nil {
			bad = append(bad, err)
			continue
		}
		good = append(good, u)
	}
	assert.Len(t, good, 2)
	require.Len(t, bad, 1)
	var utxoErr *UtxoError
	require.ErrorAs(t, bad[0], &utxoErr)
	assert.Equal(t, entries[1].TxHash, utxoErr.TxHash)
}

func TestForAddressesPartialFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	src := &fakeSource{
		pages: func(address string, _ blockfrost.PaginationParams) ([]blockfrost.UtxoResponse, error) {
			if address == "addrB" {
				return nil, &transport.Error{
					Op:     "send",
					Method: "GET",
					URL:    "https://indexer.example/addresses/addrB/utxos",
					Err:    errors.New("connection refused"),
				}
			}
			return testEntries(address, 2), nil
		},
	}
	var logBuf bytes.Buffer
	f := newTestFetcher(t, Config{
		Source: src,
		Logger: slog.New(slog.NewJSONHandler(&logBuf, nil)),
	})

	result := f.ForAddresses(t.Context(), []string{"addrA", "addrB"})
	require.Len(t, result.Utxos, 2)
	for _, u := range result.Utxos {
		assert.Equal(t, "addrA", u.Address)
	}
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "addrB", result.Failures[0].Address)
	assert.Empty(t, result.Failures[0].Utxo)
	assert.ErrorIs(t, result.Err(), transport.ErrTransport)
	assert.Contains(t, logBuf.String(), "skipping address")
	assert.Contains(t, logBuf.String(), "addrB")
}

func TestForAddressesDiscardsPartialAddress(t *testing.T) {
	src := &fakeSource{
		pages: func(address string, params blockfrost.PaginationParams) ([]blockfrost.UtxoResponse, error) {
			if address == "addrB" && params.Page == 2 {
				return nil, context.DeadlineExceeded
			}
			if address == "addrB" {
				return testEntries(address, params.Count), nil
			}
			return testEntries(address, 1), nil
		},
	}
	f := newTestFetcher(t, Config{Source: src})
	result := f.ForAddresses(t.Context(), []string{"addrA", "addrB"})
	assert.Len(t, result.Utxos, 1)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0], context.DeadlineExceeded)
}

func TestForAddressesMalformedSibling(t *testing.T) {
	entries := testEntries("addrA", 3)
	entries[0].Amount[1].Unit = testPolicy[:40]
	src := staticPages(map[string][]blockfrost.UtxoResponse{
		"addrA": entries,
		"addrB": testEntries("addrB", 1),
	})
	f := newTestFetcher(t, Config{Source: src})
	result := f.ForAddresses(t.Context(), []string{"addrA", "addrB"})
	assert.Len(t, result.Utxos, 3)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "addrA", result.Failures[0].Address)
	assert.Equal(t, entries[0].TxHash+"#0", result.Failures[0].Utxo)
}

func TestForAddressesPreservesOrder(t *testing.T) {
	sets := make(map[string][]blockfrost.UtxoResponse)
	var addresses []string
	for i := range 12 {
		address := fmt.Sprintf("addr%02d", i)
		addresses = append(addresses, address)
		sets[address] = testEntries(address, i%4+1)
	}
	f := newTestFetcher(t, Config{Source: staticPages(sets), Concurrency: 3})
	result := f.ForAddresses(t.Context(), addresses)
	require.NoError(t, result.Err())

	var order []string
	for _, u := range result.Utxos {
		if len(order) == 0 || order[len(order)-1] != u.Address {
			order = append(order, u.Address)
		}
	}
	assert.Equal(t, addresses, order)
}

func TestFirst(t *testing.T) {
	entries := testEntries("addr", 3)
	entries[0].Amount[0].Quantity = "not a number"
	src := staticPages(map[string][]blockfrost.UtxoResponse{
		"addr":  entries,
		"empty": nil,
	})
	f := newTestFetcher(t, Config{Source: src})

	u, err := f.First(t.Context(), "addr", testPolicy+"74657374")
	require.NoError(t, err)
	assert.Equal(t, entries[1].TxHash, u.TxHash)
	assert.Equal(t, entries[1].TxHash+"#1", u.Id())

	_, err = f.First(t.Context(), "empty", testPolicy+"74657374")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirstPropagatesErrors(t *testing.T) {
	src := staticPages(nil)
	f := newTestFetcher(t, Config{Source: src})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := f.First(ctx, "addr", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUtxoOptionalFields(t *testing.T) {
	datum := "d87980"
	entry := blockfrost.UtxoResponse{
		TxHash:      strings.Repeat("ef", 32),
		OutputIndex: 4,
		Block:       strings.Repeat("01", 32),
		InlineDatum: &datum,
		Amount: []blockfrost.AmountResponse{
			{Unit: "lovelace", Quantity: "1"},
		},
	}
	u, err := newUtxo("addr_fallback", entry)
	require.NoError(t, err)
	assert.Equal(t, "addr_fallback", u.Address)
	assert.Equal(t, datum, u.InlineDatum)
	assert.Empty(t, u.DataHash)
	assert.Equal(t, entry.Block, u.Block)
}

func TestForAddressesWithAsset(t *testing.T) {
	const otherUnit = testPolicy + "6f74686572"
	entries := testEntries("addrA", 3)
	entries[1].Amount = []blockfrost.AmountResponse{
		{Unit: "lovelace", Quantity: "1500000"},
		{Unit: otherUnit, Quantity: "7"},
	}
	fixture := &blockfrosttest.Fixture{
		Utxos: map[string][]blockfrost.UtxoResponse{
			"addrA": entries,
			"addrB": testEntries("addrB", 2),
		},
	}
	mock := blockfrosttest.New(blockfrosttest.Config{}, fixture, nil)
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()
	client, err := blockfrost.NewClient(blockfrost.ClientConfig{
		BaseURL: srv.URL + blockfrosttest.DefaultPathPrefix,
	})
	require.NoError(t, err)

	f := newTestFetcher(t, Config{Source: client})
	result := f.ForAddressesWithAsset(
		t.Context(),
		[]string{"addrA", "addrB"},
		otherUnit,
	)
	require.NoError(t, result.Err())
	require.Len(t, result.Utxos, 1)
	assert.Equal(t, "addrA", result.Utxos[0].Address)
	qty, ok := result.Utxos[0].Balance.AssetQuantity(otherUnit)
	assert.True(t, ok)
	assert.Equal(t, int64(7), qty)
}
