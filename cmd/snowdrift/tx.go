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

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/snowdrift/internal/config"
	"github.com/blinklabs-io/snowdrift/txsubmit"
	"github.com/blinklabs-io/snowdrift/wallet"
	"github.com/spf13/cobra"
)

// readTxFile reads a serialized transaction. Files holding
// hex text are decoded, anything else is taken as raw CBOR.
func readTxFile(path string) (wallet.RawTransaction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("transaction file is empty")
	}
	if decoded, err := hex.DecodeString(string(trimmed)); err == nil {
		return decoded, nil
	}
	return data, nil
}

type submitOutput struct {
	TxId string `json:"txId"`
}

func submitRun(ctx context.Context, svc *services, tx wallet.Serializer, w io.Writer) error {
	txId, err := svc.submitter.SubmitTransaction(ctx, tx)
	if err != nil {
		return err
	}
	return printJSON(w, submitOutput{TxId: txId})
}

func submitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <tx-file>",
		Short: "Submit a signed transaction (raw CBOR or hex, '-' for stdin)",
		Args:  cobra.ExactArgs(1),
		Run: runWithConfig(func(cmd *cobra.Command, args []string, cfg *config.Config, logger *slog.Logger) error {
			tx, err := readTxFile(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), cfg, logger, func(ctx context.Context, svc *services) error {
				return submitRun(ctx, svc, tx, cmd.OutOrStdout())
			})
		}),
	}
}

type exUnitsOutput struct {
	Memory uint64 `json:"memory"`
	Steps  uint64 `json:"steps"`
}

type validatorFailureOutput struct {
	Error  string   `json:"error"`
	Traces []string `json:"traces,omitempty"`
}

type evaluateOutput struct {
	Type        string                              `json:"type,omitempty"`
	Version     string                              `json:"version,omitempty"`
	ServiceName string                              `json:"servicename,omitempty"`
	MethodName  string                              `json:"methodname,omitempty"`
	ExUnits     map[string]exUnitsOutput            `json:"exUnits,omitempty"`
	Total       *exUnitsOutput                      `json:"total,omitempty"`
	ScriptFee   *uint64                             `json:"scriptFee,omitempty"`
	Failures    map[string][]validatorFailureOutput `json:"failures,omitempty"`
}

func newEvaluateOutput(result *txsubmit.EvaluationResult) evaluateOutput {
	ret := evaluateOutput{
		Type:        result.Type,
		Version:     result.Version,
		ServiceName: result.ServiceName,
		MethodName:  result.MethodName,
	}
	if result.Failed() {
		ret.Failures = make(map[string][]validatorFailureOutput, len(result.Failures))
		for key, failures := range result.Failures {
			for _, f := range failures {
				ret.Failures[key] = append(ret.Failures[key], validatorFailureOutput{
					Error:  f.Error,
					Traces: f.Traces,
				})
			}
		}
		return ret
	}
	ret.ExUnits = make(map[string]exUnitsOutput, len(result.Budgets))
	for key, units := range result.ExUnits() {
		ret.ExUnits[key] = exUnitsOutput{Memory: units.Memory, Steps: units.Steps}
	}
	total := result.Total()
	ret.Total = &exUnitsOutput{Memory: total.Memory, Steps: total.Steps}
	return ret
}

var errScriptsFailed = errors.New("transaction scripts failed evaluation")

func evaluateRun(
	ctx context.Context,
	svc *services,
	tx wallet.Serializer,
	withFee bool,
	w io.Writer,
) error {
	result, err := svc.submitter.EvaluateTransaction(ctx, tx)
	if err != nil {
		return err
	}
	out := newEvaluateOutput(result)
	if withFee && !result.Failed() {
		snapshot, err := svc.chain.Refresh(ctx)
		if err != nil {
			return err
		}
		fee, err := snapshot.ScriptFee(out.Total.Memory, out.Total.Steps)
		if err != nil {
			return err
		}
		out.ScriptFee = &fee
	}
	if err := printJSON(w, out); err != nil {
		return err
	}
	if result.Failed() {
		return errScriptsFailed
	}
	return nil
}

func evaluateCommand() *cobra.Command {
	var withFee bool
	cmd := &cobra.Command{
		Use:   "evaluate <tx-file>",
		Short: "Evaluate the scripts of a transaction (raw CBOR or hex, '-' for stdin)",
		Args:  cobra.ExactArgs(1),
		Run: runWithConfig(func(cmd *cobra.Command, args []string, cfg *config.Config, logger *slog.Logger) error {
			tx, err := readTxFile(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), cfg, logger, func(ctx context.Context, svc *services) error {
				return evaluateRun(ctx, svc, tx, withFee, cmd.OutOrStdout())
			})
		}),
	}
	cmd.Flags().BoolVar(&withFee, "fee", false, "also compute the script fee from the current execution prices")
	return cmd
}
