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

package blockfrost

import "encoding/json"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// BlockResponse represents a Blockfrost block object.
type BlockResponse struct {
	Time          int64   `json:"time"`
	Height        uint64  `json:"height"`
	Hash          string  `json:"hash"`
	Slot          uint64  `json:"slot"`
	Epoch         uint64  `json:"epoch"`
	EpochSlot     uint64  `json:"epoch_slot"`
	SlotLeader    string  `json:"slot_leader"`
	Size          uint64  `json:"size"`
	TxCount       int     `json:"tx_count"`
	Output        *string `json:"output"`
	Fees          *string `json:"fees"`
	BlockVRF      *string `json:"block_vrf"`
	OPCert        *string `json:"op_cert"`
	OPCertCounter *string `json:"op_cert_counter"`
	PreviousBlock string  `json:"previous_block"`
	NextBlock     *string `json:"next_block"`
	Confirmations uint64  `json:"confirmations"`
}

// ProtocolParamsResponse represents Blockfrost protocol
// parameters. Only the fields this client consumes are
// typed; the raw document is available through
// Client.LatestEpochParametersRaw.
type ProtocolParamsResponse struct {
	Epoch            uint64   `json:"epoch"`
	MinFeeA          int      `json:"min_fee_a"`
	MinFeeB          int      `json:"min_fee_b"`
	MaxBlockSize     int      `json:"max_block_size"`
	MaxTxSize        int      `json:"max_tx_size"`
	KeyDeposit       string   `json:"key_deposit"`
	PoolDeposit      string   `json:"pool_deposit"`
	ProtocolMajorVer int      `json:"protocol_major_ver"`
	ProtocolMinorVer int      `json:"protocol_minor_ver"`
	MinUtxo          string   `json:"min_utxo"`
	CoinsPerUtxoSize *string  `json:"coins_per_utxo_size"`
	CoinsPerUtxoWord *string  `json:"coins_per_utxo_word"`
	PriceMem         *float64 `json:"price_mem"`
	PriceStep        *float64 `json:"price_step"`
	MaxTxExMem       *string  `json:"max_tx_ex_mem"`
	MaxTxExSteps     *string  `json:"max_tx_ex_steps"`
	MaxValSize       *string  `json:"max_val_size"`
	//nolint:tagliatelle
	CollateralPercent   *int `json:"collateral_percent"`
	MaxCollateralInputs *int `json:"max_collateral_inputs"`
}

// Clone returns a copy that shares no pointers with p.
func (p ProtocolParamsResponse) Clone() ProtocolParamsResponse {
	ret := p
	ret.CoinsPerUtxoSize = clonePtr(p.CoinsPerUtxoSize)
	ret.CoinsPerUtxoWord = clonePtr(p.CoinsPerUtxoWord)
	ret.PriceMem = clonePtr(p.PriceMem)
	ret.PriceStep = clonePtr(p.PriceStep)
	ret.MaxTxExMem = clonePtr(p.MaxTxExMem)
	ret.MaxTxExSteps = clonePtr(p.MaxTxExSteps)
	ret.MaxValSize = clonePtr(p.MaxValSize)
	ret.CollateralPercent = clonePtr(p.CollateralPercent)
	ret.MaxCollateralInputs = clonePtr(p.MaxCollateralInputs)
	return ret
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// AmountResponse is one {unit, quantity} entry of a UTXO.
type AmountResponse struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// UtxoResponse represents one entry of
// GET /addresses/{address}/utxos.
type UtxoResponse struct {
	Address             string           `json:"address"`
	TxHash              string           `json:"tx_hash"`
	TxIndex             uint32           `json:"tx_index"`
	OutputIndex         uint32           `json:"output_index"`
	Amount              []AmountResponse `json:"amount"`
	Block               string           `json:"block"`
	DataHash            *string          `json:"data_hash"`
	InlineDatum         *string          `json:"inline_datum"`
	ReferenceScriptHash *string          `json:"reference_script_hash"`
}

// EvaluateResponse is the envelope returned by
// POST /utils/txs/evaluate.
type EvaluateResponse struct {
	Type        string          `json:"type"`
	Version     string          `json:"version"`
	ServiceName string          `json:"servicename"`
	MethodName  string          `json:"methodname"`
	Result      *EvaluateResult `json:"result,omitempty"`
	Fault       *EvaluateFault  `json:"fault,omitempty"`
	Reflection  json.RawMessage `json:"reflection,omitempty"`
}

// EvaluateResult carries exactly one of its two maps. Both
// are keyed by redeemer pointer, e.g. "spend:0".
type EvaluateResult struct {
	EvaluationResult  map[string]EvaluateExUnits `json:"EvaluationResult,omitempty"`
	EvaluationFailure *EvaluateFailure           `json:"EvaluationFailure,omitempty"`
}

// EvaluateExUnits is the budget of one redeemer.
type EvaluateExUnits struct {
	Memory uint64 `json:"memory"`
	Steps  uint64 `json:"steps"`
}

// EvaluateFailure holds the per-redeemer script failures.
// Any other failure kinds reported by the evaluator are kept
// raw.
type EvaluateFailure struct {
	ScriptFailures map[string][]ScriptFailure `json:"ScriptFailures,omitempty"`
	Other          map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON splits ScriptFailures from any other failure
// kinds.
func (f *EvaluateFailure) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if k == "ScriptFailures" {
			if err := json.Unmarshal(v, &f.ScriptFailures); err != nil {
				return err
			}
			continue
		}
		if f.Other == nil {
			f.Other = make(map[string]json.RawMessage)
		}
		f.Other[k] = v
	}
	return nil
}

// ScriptFailure is one failure entry for a redeemer.
type ScriptFailure struct {
	ValidatorFailed *ValidatorFailed           `json:"validatorFailed,omitempty"`
	Other           map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps failure kinds other than
// validatorFailed raw.
func (s *ScriptFailure) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if k == "validatorFailed" {
			var vf ValidatorFailed
			if err := json.Unmarshal(v, &vf); err != nil {
				return err
			}
			s.ValidatorFailed = &vf
			continue
		}
		if s.Other == nil {
			s.Other = make(map[string]json.RawMessage)
		}
		s.Other[k] = v
	}
	return nil
}

// ValidatorFailed describes a script that ran and failed.
type ValidatorFailed struct {
	Error  string   `json:"error"`
	Traces []string `json:"traces"`
}

// EvaluateFault is the evaluator's own error envelope.
type EvaluateFault struct {
	Code   string `json:"code"`
	String string `json:"string"`
}

// ErrorResponse represents a Blockfrost error response.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
