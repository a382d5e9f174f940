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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/snowdrift/balance"
	"github.com/blinklabs-io/snowdrift/chainstate"
	"github.com/blinklabs-io/snowdrift/internal/config"
	"github.com/blinklabs-io/snowdrift/utxo"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type tipOutput struct {
	Network          string    `json:"network"`
	Epoch            uint64    `json:"epoch"`
	BlockHash        string    `json:"blockHash"`
	BlockHeight      uint64    `json:"blockHeight"`
	TipSlot          uint64    `json:"tipSlot"`
	TipTime          time.Time `json:"tipTime"`
	CurrentSlot      uint64    `json:"currentSlot"`
	MinFeeA          uint64    `json:"minFeeA"`
	MinFeeB          uint64    `json:"minFeeB"`
	CoinsPerUtxoWord uint64    `json:"coinsPerUtxoWord"`
	PriceMem         string    `json:"priceMem"`
	PriceStep        string    `json:"priceStep"`
	MaxTxExMem       uint64    `json:"maxTxExMem"`
	MaxTxExSteps     uint64    `json:"maxTxExSteps"`
	RefreshedAt      time.Time `json:"refreshedAt"`
}

func newTipOutput(network string, s chainstate.Snapshot) tipOutput {
	return tipOutput{
		Network:          network,
		Epoch:            s.Epoch,
		BlockHash:        s.Tip.Hash,
		BlockHeight:      s.Tip.Height,
		TipSlot:          s.Tip.Slot,
		TipTime:          s.Tip.Time,
		CurrentSlot:      s.CurrentSlot,
		MinFeeA:          s.MinFeeA,
		MinFeeB:          s.MinFeeB,
		CoinsPerUtxoWord: s.CoinsPerUtxoWord,
		PriceMem:         s.PriceMem.String(),
		PriceStep:        s.PriceStep.String(),
		MaxTxExMem:       s.MaxTxExMem,
		MaxTxExSteps:     s.MaxTxExSteps,
		RefreshedAt:      s.RefreshedAt,
	}
}

func tipRun(ctx context.Context, svc *services, network string, w io.Writer) error {
	snapshot, err := svc.chain.Refresh(ctx)
	if err != nil {
		return err
	}
	return printJSON(w, newTipOutput(network, snapshot))
}

func tipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tip",
		Short: "Show the chain tip and fee parameters",
		Args:  cobra.NoArgs,
		Run: runWithConfig(func(cmd *cobra.Command, _ []string, cfg *config.Config, logger *slog.Logger) error {
			return withServices(cmd.Context(), cfg, logger, func(ctx context.Context, svc *services) error {
				return tipRun(ctx, svc, cfg.Network, cmd.OutOrStdout())
			})
		}),
	}
}

func paramsRun(ctx context.Context, svc *services, w io.Writer) error {
	raw, err := svc.client.LatestEpochParametersRaw(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, raw)
	return err
}

func paramsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the latest protocol parameters as returned by the indexer",
		Args:  cobra.NoArgs,
		Run: runWithConfig(func(cmd *cobra.Command, _ []string, cfg *config.Config, logger *slog.Logger) error {
			return withServices(cmd.Context(), cfg, logger, func(ctx context.Context, svc *services) error {
				return paramsRun(ctx, svc, cmd.OutOrStdout())
			})
		}),
	}
}

type assetOutput struct {
	Unit        string `json:"unit"`
	Fingerprint string `json:"fingerprint"`
	Quantity    int64  `json:"quantity"`
}

type utxoOutput struct {
	Id          string        `json:"id"`
	Address     string        `json:"address"`
	Lovelace    uint64        `json:"lovelace"`
	Ada         string        `json:"ada"`
	Assets      []assetOutput `json:"assets,omitempty"`
	Block       string        `json:"block,omitempty"`
	DataHash    string        `json:"dataHash,omitempty"`
	InlineDatum string        `json:"inlineDatum,omitempty"`
	RefScript   string        `json:"referenceScriptHash,omitempty"`
}

type failureOutput struct {
	Address string `json:"address"`
	Utxo    string `json:"utxo,omitempty"`
	Error   string `json:"error"`
}

type utxosOutput struct {
	Utxos         []utxoOutput    `json:"utxos"`
	TotalLovelace uint64          `json:"totalLovelace"`
	TotalAda      string          `json:"totalAda"`
	Failures      []failureOutput `json:"failures,omitempty"`
}

func newUtxoOutput(u utxo.Utxo) utxoOutput {
	ret := utxoOutput{
		Id:          u.Id(),
		Address:     u.Address,
		Lovelace:    u.Balance.Lovelace,
		Ada:         balance.LovelaceToAda(u.Balance.Lovelace),
		Block:       u.Block,
		DataHash:    u.DataHash,
		InlineDatum: u.InlineDatum,
		RefScript:   u.ReferenceScriptHash,
	}
	for _, asset := range u.Balance.Assets {
		ret.Assets = append(ret.Assets, assetOutput{
			Unit:        asset.Unit(),
			Fingerprint: asset.Fingerprint(),
			Quantity:    asset.Quantity,
		})
	}
	return ret
}

func newUtxosOutput(result utxo.Result) utxosOutput {
	ret := utxosOutput{
		Utxos: make([]utxoOutput, 0, len(result.Utxos)),
	}
	for _, u := range result.Utxos {
		ret.Utxos = append(ret.Utxos, newUtxoOutput(u))
		ret.TotalLovelace += u.Balance.Lovelace
	}
	ret.TotalAda = balance.LovelaceToAda(ret.TotalLovelace)
	for _, f := range result.Failures {
		ret.Failures = append(ret.Failures, failureOutput{
			Address: f.Address,
			Utxo:    f.Utxo,
			Error:   f.Err.Error(),
		})
	}
	return ret
}

func utxosRun(
	ctx context.Context,
	svc *services,
	addresses []string,
	asset string,
	first bool,
	w io.Writer,
) error {
	if len(addresses) == 0 {
		return errors.New("no addresses given and none configured")
	}
	if first {
		if len(addresses) != 1 {
			return errors.New("--first takes exactly one address")
		}
		u, err := svc.fetcher.First(ctx, addresses[0], asset)
		if err != nil {
			return err
		}
		return printJSON(w, newUtxoOutput(u))
	}
	result := svc.fetcher.ForAddressesWithAsset(ctx, addresses, asset)
	return printJSON(w, newUtxosOutput(result))
}

func utxosCommand() *cobra.Command {
	var asset string
	var first bool
	cmd := &cobra.Command{
		Use:   "utxos [address...]",
		Short: "List the UTXOs and balances of one or more addresses",
		Run: runWithConfig(func(cmd *cobra.Command, args []string, cfg *config.Config, logger *slog.Logger) error {
			addresses := args
			if len(addresses) == 0 {
				addresses = cfg.Addresses
			}
			return withServices(cmd.Context(), cfg, logger, func(ctx context.Context, svc *services) error {
				return utxosRun(ctx, svc, addresses, asset, first, cmd.OutOrStdout())
			})
		}),
	}
	cmd.Flags().StringVar(&asset, "asset", "", "only list UTXOs holding this asset unit (policy id + asset name hex)")
	cmd.Flags().BoolVar(&first, "first", false, "print only the first matching UTXO")
	return cmd
}
