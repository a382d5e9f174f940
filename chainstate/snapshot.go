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

package chainstate

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strconv"
	"time"

	"github.com/blinklabs-io/snowdrift/blockfrost"
	"github.com/shopspring/decimal"
)

var ErrFeeOverflow = errors.New("fee overflows uint64")

var (
	// Mainnet execution unit prices, used when the indexer
	// omits them
	DefaultPriceMem  = decimal.RequireFromString("0.0577")
	DefaultPriceStep = decimal.RequireFromString("0.0000721")
)

// Tip identifies the most recent block known to the indexer.
type Tip struct {
	Hash   string
	Height uint64
	Slot   uint64
	Epoch  uint64
	Time   time.Time
}

// Snapshot holds chain-wide facts captured by a single
// refresh. A Snapshot is never modified after it is built.
type Snapshot struct {
	Epoch            uint64
	MinFeeA          uint64
	MinFeeB          uint64
	CoinsPerUtxoWord uint64
	CoinsPerUtxoSize uint64
	PriceMem         decimal.Decimal
	PriceStep        decimal.Decimal
	MaxTxExMem       uint64
	MaxTxExSteps     uint64
	Tip              Tip
	CurrentSlot      uint64
	RefreshedAt      time.Time
	Parameters       blockfrost.ProtocolParamsResponse
}

// MinFee returns the linear fee for a transaction of txSize
// bytes: minFeeA * txSize + minFeeB.
func (s Snapshot) MinFee(txSize uint64) (uint64, error) {
	hi, lo := bits.Mul64(s.MinFeeA, txSize)
	if hi != 0 {
		return 0, fmt.Errorf("%w: min fee for %d bytes", ErrFeeOverflow, txSize)
	}
	fee, carry := bits.Add64(lo, s.MinFeeB, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: min fee for %d bytes", ErrFeeOverflow, txSize)
	}
	return fee, nil
}

// ScriptFee returns the fee for the given execution units,
// rounded up to a whole lovelace.
func (s Snapshot) ScriptFee(memory uint64, steps uint64) (uint64, error) {
	fee := s.PriceMem.Mul(decimalFromUint64(memory)).
		Add(s.PriceStep.Mul(decimalFromUint64(steps))).
		Ceil()
	if fee.IsNegative() || !fee.BigInt().IsUint64() {
		return 0, fmt.Errorf(
			"%w: script fee for memory %d, steps %d",
			ErrFeeOverflow,
			memory,
			steps,
		)
	}
	return fee.BigInt().Uint64(), nil
}

// clone returns a copy that shares no mutable state with s.
func (s *Snapshot) clone() Snapshot {
	ret := *s
	ret.Parameters = s.Parameters.Clone()
	return ret
}

// Age returns how long ago the snapshot was taken.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.RefreshedAt)
}

func newSnapshot(
	params blockfrost.ProtocolParamsResponse,
	block blockfrost.BlockResponse,
	refreshedAt time.Time,
) (*Snapshot, error) {
	if params.MinFeeA < 0 || params.MinFeeB < 0 {
		return nil, fmt.Errorf(
			"negative fee coefficients: min_fee_a=%d min_fee_b=%d",
			params.MinFeeA,
			params.MinFeeB,
		)
	}
	ret := &Snapshot{
		Epoch:       params.Epoch,
		MinFeeA:     uint64(params.MinFeeA),
		MinFeeB:     uint64(params.MinFeeB),
		PriceMem:    DefaultPriceMem,
		PriceStep:   DefaultPriceStep,
		CurrentSlot: block.Slot,
		RefreshedAt: refreshedAt,
		Parameters:  params.Clone(),
		Tip: Tip{
			Hash:   block.Hash,
			Height: block.Height,
			Slot:   block.Slot,
			Epoch:  block.Epoch,
			Time:   time.Unix(block.Time, 0).UTC(),
		},
	}
	var err error
	if params.CoinsPerUtxoSize != nil {
		ret.CoinsPerUtxoSize, err = parseCoins(*params.CoinsPerUtxoSize)
		if err != nil {
			return nil, fmt.Errorf("coins_per_utxo_size: %w", err)
		}
	}
	switch {
	case params.CoinsPerUtxoWord != nil:
		ret.CoinsPerUtxoWord, err = parseCoins(*params.CoinsPerUtxoWord)
		if err != nil {
			return nil, fmt.Errorf("coins_per_utxo_word: %w", err)
		}
	case params.CoinsPerUtxoSize != nil:
		// Post-Babbage indexers may only report the per-byte
		// value
		ret.CoinsPerUtxoWord = ret.CoinsPerUtxoSize
	default:
		return nil, errors.New("protocol parameters carry no coins per utxo value")
	}
	if params.PriceMem != nil {
		ret.PriceMem = decimal.NewFromFloat(*params.PriceMem)
	}
	if params.PriceStep != nil {
		ret.PriceStep = decimal.NewFromFloat(*params.PriceStep)
	}
	if params.MaxTxExMem != nil {
		ret.MaxTxExMem, err = strconv.ParseUint(*params.MaxTxExMem, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("max_tx_ex_mem: %w", err)
		}
	}
	if params.MaxTxExSteps != nil {
		ret.MaxTxExSteps, err = strconv.ParseUint(*params.MaxTxExSteps, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("max_tx_ex_steps: %w", err)
		}
	}
	return ret, nil
}

func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// parseCoins parses a decimal lovelace string. A fractional
// part is allowed only when it is zero.
func parseCoins(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("not a whole lovelace amount: %q", s)
	}
	if !d.BigInt().IsUint64() {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return d.BigInt().Uint64(), nil
}
