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

package txsubmit

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/blinklabs-io/snowdrift/blockfrost"
)

// ExUnits is a (memory, steps) execution budget.
type ExUnits struct {
	Memory uint64
	Steps  uint64
}

// Add returns the component-wise sum.
func (e ExUnits) Add(o ExUnits) ExUnits {
	return ExUnits{Memory: e.Memory + o.Memory, Steps: e.Steps + o.Steps}
}

// ValidatorFailure describes one script failure.
type ValidatorFailure struct {
	Error  string
	Traces []string
}

// EvaluationResult is the outcome of an evaluation that ran.
// Exactly one of Budgets and Failures is populated.
type EvaluationResult struct {
	Type        string
	Version     string
	ServiceName string
	MethodName  string
	// Budgets maps a redeemer key such as "spend:0" to its
	// execution units
	Budgets map[string]ExUnits
	// Failures maps a redeemer key to the reasons its script
	// failed
	Failures map[string][]ValidatorFailure
}

// Failed reports whether any script failed.
func (r *EvaluationResult) Failed() bool {
	return len(r.Failures) > 0
}

// ExUnits returns a copy of the per-redeemer budgets, or nil
// when scripts failed.
func (r *EvaluationResult) ExUnits() map[string]ExUnits {
	if r.Failed() {
		return nil
	}
	return maps.Clone(r.Budgets)
}

// Total sums every redeemer budget.
func (r *EvaluationResult) Total() ExUnits {
	var ret ExUnits
	for _, eu := range r.Budgets {
		ret = ret.Add(eu)
	}
	return ret
}

// RedeemerKeys returns the keys of whichever map is
// populated, sorted.
func (r *EvaluationResult) RedeemerKeys() []string {
	if r.Failed() {
		return slices.Sorted(maps.Keys(r.Failures))
	}
	return slices.Sorted(maps.Keys(r.Budgets))
}

// RedeemerKey is a parsed "<purpose>:<index>" pointer.
type RedeemerKey struct {
	Purpose string
	Index   uint32
}

func (k RedeemerKey) String() string {
	return k.Purpose + ":" + strconv.FormatUint(uint64(k.Index), 10)
}

var redeemerPurposes = []string{
	"spend",
	"mint",
	"certificate",
	"withdrawal",
	"vote",
	"propose",
	// Older evaluator releases
	"cert",
	"reward",
}

// ParseRedeemerKey parses a key such as "spend:0".
func ParseRedeemerKey(key string) (RedeemerKey, error) {
	purpose, index, ok := strings.Cut(key, ":")
	if !ok {
		return RedeemerKey{}, fmt.Errorf("invalid redeemer key %q", key)
	}
	if !slices.Contains(redeemerPurposes, purpose) {
		return RedeemerKey{}, fmt.Errorf("unknown redeemer purpose in %q", key)
	}
	idx, err := strconv.ParseUint(index, 10, 32)
	if err != nil {
		return RedeemerKey{}, fmt.Errorf("invalid redeemer index in %q: %w", key, err)
	}
	return RedeemerKey{Purpose: purpose, Index: uint32(idx)}, nil
}

// newEvaluationResult normalizes the evaluator envelope. A
// failure map takes precedence over a success map.
func newEvaluationResult(resp blockfrost.EvaluateResponse) (*EvaluationResult, error) {
	if resp.Fault != nil {
		return nil, &EvaluationError{
			Kind:    KindAPI,
			Message: fmt.Sprintf("%s: %s", resp.Fault.Code, resp.Fault.String),
		}
	}
	if resp.Result == nil {
		return nil, &EvaluationError{
			Kind:    KindUnstructured,
			Message: "evaluation response carries no result",
		}
	}
	ret := &EvaluationResult{
		Type:        resp.Type,
		Version:     resp.Version,
		ServiceName: resp.ServiceName,
		MethodName:  resp.MethodName,
	}
	if failure := resp.Result.EvaluationFailure; failure != nil {
		if len(failure.ScriptFailures) == 0 {
			// The evaluator could not run any script
			return nil, &EvaluationError{
				Kind:    KindAPI,
				Message: describeOther(failure.Other),
			}
		}
		ret.Failures = make(map[string][]ValidatorFailure, len(failure.ScriptFailures))
		for key, entries := range failure.ScriptFailures {
			failures := make([]ValidatorFailure, 0, len(entries))
			for _, entry := range entries {
				failures = append(failures, newValidatorFailure(entry))
			}
			ret.Failures[key] = failures
		}
		return ret, nil
	}
	ret.Budgets = make(map[string]ExUnits, len(resp.Result.EvaluationResult))
	for key, eu := range resp.Result.EvaluationResult {
		ret.Budgets[key] = ExUnits{Memory: eu.Memory, Steps: eu.Steps}
	}
	return ret, nil
}

func newValidatorFailure(entry blockfrost.ScriptFailure) ValidatorFailure {
	if entry.ValidatorFailed != nil {
		return ValidatorFailure{
			Error:  entry.ValidatorFailed.Error,
			Traces: entry.ValidatorFailed.Traces,
		}
	}
	return ValidatorFailure{Error: describeOther(entry.Other)}
}

// describeOther renders raw failure kinds as "kind: json"
// in key order.
func describeOther(other map[string]json.RawMessage) string {
	if len(other) == 0 {
		return "evaluation failed without detail"
	}
	parts := make([]string, 0, len(other))
	for _, k := range slices.Sorted(maps.Keys(other)) {
		parts = append(parts, k+": "+string(other[k]))
	}
	return strings.Join(parts, "; ")
}
