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

package balance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	LovelacePerAda = 1_000_000
	adaDecimals    = 6
)

var ErrInvalidAda = errors.New("invalid ADA amount")

// LovelaceToAda formats a lovelace quantity as ADA with six
// decimal places.
func LovelaceToAda(lovelace uint64) string {
	return fmt.Sprintf(
		"%d.%06d",
		lovelace/LovelacePerAda,
		lovelace%LovelacePerAda,
	)
}

// AdaToLovelace parses a decimal ADA amount such as "1.5".
// More than six fractional digits are rejected.
func AdaToLovelace(ada string) (uint64, error) {
	trimmed := strings.TrimSpace(ada)
	// Exponent notation is not an ADA amount
	if strings.ContainsAny(trimmed, "eE") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAda, ada)
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidAda, ada, err)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAda, ada)
	}
	lovelace := amount.Shift(adaDecimals)
	if !lovelace.IsInteger() {
		return 0, fmt.Errorf(
			"%w: %q has more than %d decimal places",
			ErrInvalidAda,
			ada,
			adaDecimals,
		)
	}
	ret := lovelace.BigInt()
	if !ret.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAda, ada)
	}
	return ret.Uint64(), nil
}
