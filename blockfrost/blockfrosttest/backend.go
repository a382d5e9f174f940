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

package blockfrosttest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sync"

	gledger "github.com/blinklabs-io/gouroboros/ledger"
	"github.com/blinklabs-io/snowdrift/blockfrost"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Backend supplies the data served by Server. Errors of type
// *Error are written with their status code; any other error
// is a 500.
type Backend interface {
	LatestBlock() (blockfrost.BlockResponse, error)
	ProtocolParams() (blockfrost.ProtocolParamsResponse, error)
	// AddressUtxos returns the full UTXO set of an address,
	// filtered to asset when it is not empty. The server
	// paginates it.
	AddressUtxos(address string, asset string) ([]blockfrost.UtxoResponse, error)
	SubmitTx(txCbor []byte) (string, error)
	EvaluateTx(txCbor []byte) (blockfrost.EvaluateResponse, error)
}

// Error is an indexer error with an explicit status code.
type Error struct {
	StatusCode int    `json:"status_code"`
	Name       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Name, e.Message)
}

// ErrNotFound mirrors the indexer's answer for unknown
// resources.
var ErrNotFound = &Error{
	StatusCode: http.StatusNotFound,
	Name:       "Not Found",
	Message:    "The requested component has not been found.",
}

// Fixture is a static Backend, loadable from a YAML or JSON
// file whose documents use the indexer's JSON field names.
type Fixture struct {
	Block      blockfrost.BlockResponse             `json:"block"`
	Parameters blockfrost.ProtocolParamsResponse    `json:"parameters"`
	Utxos      map[string][]blockfrost.UtxoResponse `json:"utxos"`
	Evaluation *blockfrost.EvaluateResponse         `json:"evaluation,omitempty"`
	// SubmitError rejects every submission when set.
	SubmitError *Error `json:"submitError,omitempty"`

	mu        sync.Mutex
	submitted [][]byte
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML. JSON is accepted as a
// subset of YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	// Round-trip through JSON so the indexer's field names
	// apply
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	f := &Fixture{}
	if err := json.Unmarshal(jsonData, f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

func (f *Fixture) LatestBlock() (blockfrost.BlockResponse, error) {
	return f.Block, nil
}

func (f *Fixture) ProtocolParams() (blockfrost.ProtocolParamsResponse, error) {
	return f.Parameters, nil
}

func (f *Fixture) AddressUtxos(
	address string,
	asset string,
) ([]blockfrost.UtxoResponse, error) {
	utxos, ok := f.Utxos[address]
	if !ok {
		return nil, ErrNotFound
	}
	if asset == "" {
		return utxos, nil
	}
	var ret []blockfrost.UtxoResponse
	for _, u := range utxos {
		if slices.ContainsFunc(u.Amount, func(a blockfrost.AmountResponse) bool {
			return a.Unit == asset
		}) {
			ret = append(ret, u)
		}
	}
	return ret, nil
}

// SubmitTx records the transaction and returns its hash.
// Bytes that do not decode as a transaction get the hex
// Blake2b-256 hash of the whole payload.
func (f *Fixture) SubmitTx(txCbor []byte) (string, error) {
	if f.SubmitError != nil {
		return "", f.SubmitError
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, slices.Clone(txCbor))
	f.mu.Unlock()
	if txType, err := gledger.DetermineTransactionType(txCbor); err == nil {
		tx, err := gledger.NewTransactionFromCbor(txType, txCbor)
		if err == nil && tx != nil {
			return tx.Hash().String(), nil
		}
	}
	sum := blake2b.Sum256(txCbor)
	return hex.EncodeToString(sum[:]), nil
}

func (f *Fixture) EvaluateTx(_ []byte) (blockfrost.EvaluateResponse, error) {
	if f.Evaluation == nil {
		return blockfrost.EvaluateResponse{}, errors.New(
			"no evaluation configured",
		)
	}
	return *f.Evaluation, nil
}

// Submitted returns copies of every accepted transaction.
func (f *Fixture) Submitted() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := make([][]byte, 0, len(f.submitted))
	for _, tx := range f.submitted {
		ret = append(ret, slices.Clone(tx))
	}
	return ret
}
