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

// Package balance turns the indexer's {unit, quantity} amount
// lists into a structured multi-asset balance.
package balance

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

const (
	// LovelaceUnit is the unit of the chain's native currency.
	LovelaceUnit = "lovelace"

	// PolicyIdHexLen is the length of a hex-encoded policy id
	// at the start of every non-native unit.
	PolicyIdHexLen = 56
)

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("malformed amount")

// FormatError describes an amount entry that cannot be
// represented.
type FormatError struct {
	Unit     string
	Quantity string
	Reason   string
	Err      error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf(
		"malformed amount (unit %q, quantity %q): %s",
		e.Unit,
		e.Quantity,
		e.Reason,
	)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

// Amount is one raw entry as reported by the indexer.
type Amount struct {
	Unit     string
	Quantity string
}

// Asset is one non-native holding.
type Asset struct {
	PolicyId lcommon.Blake2b224
	Name     []byte
	// Quantity is negative only in mint or burn contexts
	Quantity int64
}

// Unit returns the indexer unit: the policy id followed by
// the hex asset name.
func (a Asset) Unit() string {
	return hex.EncodeToString(a.PolicyId.Bytes()) + hex.EncodeToString(a.Name)
}

// Fingerprint returns the CIP-14 asset fingerprint.
func (a Asset) Fingerprint() string {
	return lcommon.NewAssetFingerprint(a.PolicyId.Bytes(), a.Name).String()
}

// Balance is the aggregated holdings of one UTXO.
type Balance struct {
	Lovelace uint64
	Assets   []Asset
}

// AssetQuantity sums the quantities held for unit. The
// LovelaceUnit is accepted too.
func (b Balance) AssetQuantity(unit string) (int64, bool) {
	if unit == LovelaceUnit {
		if b.Lovelace > math.MaxInt64 {
			return 0, false
		}
		return int64(b.Lovelace), true
	}
	var total int64
	found := false
	for _, a := range b.Assets {
		if a.Unit() == unit {
			total += a.Quantity
			found = true
		}
	}
	return total, found
}

// Aggregate builds a Balance from raw amounts. Lovelace
// entries are summed; every other entry becomes an Asset in
// input order.
func Aggregate(amounts []Amount) (Balance, error) {
	var ret Balance
	for _, amount := range amounts {
		if amount.Unit == LovelaceUnit {
			qty, err := strconv.ParseUint(amount.Quantity, 10, 64)
			if err != nil {
				return Balance{}, &FormatError{
					Unit:     amount.Unit,
					Quantity: amount.Quantity,
					Reason:   "invalid lovelace quantity",
					Err:      err,
				}
			}
			if ret.Lovelace > math.MaxUint64-qty {
				return Balance{}, &FormatError{
					Unit:     amount.Unit,
					Quantity: amount.Quantity,
					Reason:   "lovelace total overflows uint64",
				}
			}
			ret.Lovelace += qty
			continue
		}
		asset, err := parseAsset(amount)
		if err != nil {
			return Balance{}, err
		}
		ret.Assets = append(ret.Assets, asset)
	}
	return ret, nil
}

func parseAsset(amount Amount) (Asset, error) {
	if len(amount.Unit) < PolicyIdHexLen {
		return Asset{}, &FormatError{
			Unit:     amount.Unit,
			Quantity: amount.Quantity,
			Reason: fmt.Sprintf(
				"unit shorter than %d hex characters",
				PolicyIdHexLen,
			),
		}
	}
	policyId, err := hex.DecodeString(amount.Unit[:PolicyIdHexLen])
	if err != nil {
		return Asset{}, &FormatError{
			Unit:     amount.Unit,
			Quantity: amount.Quantity,
			Reason:   "invalid policy id",
			Err:      err,
		}
	}
	name, err := hex.DecodeString(amount.Unit[PolicyIdHexLen:])
	if err != nil {
		return Asset{}, &FormatError{
			Unit:     amount.Unit,
			Quantity: amount.Quantity,
			Reason:   "invalid asset name",
			Err:      err,
		}
	}
	qty, err := strconv.ParseInt(amount.Quantity, 10, 64)
	if err != nil {
		return Asset{}, &FormatError{
			Unit:     amount.Unit,
			Quantity: amount.Quantity,
			Reason:   "invalid asset quantity",
			Err:      err,
		}
	}
	return Asset{
		PolicyId: lcommon.NewBlake2b224(policyId),
		Name:     name,
		Quantity: qty,
	}, nil
}
