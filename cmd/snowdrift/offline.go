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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/blinklabs-io/snowdrift/balance"
	"github.com/blinklabs-io/snowdrift/chainstate"
	"github.com/blinklabs-io/snowdrift/internal/config"
	"github.com/blinklabs-io/snowdrift/wallet"
	"github.com/spf13/cobra"
)

type slotOutput struct {
	Network string    `json:"network"`
	Slot    uint64    `json:"slot"`
	Time    time.Time `json:"time"`
}

// slotRun converts between a slot and its start time. With no
// slot or time it reports the slot at now.
func slotRun(network, slot, at string, now time.Time, w io.Writer) error {
	slotCfg, err := chainstate.SlotConfigForNetwork(network)
	if err != nil {
		return err
	}
	out := slotOutput{Network: network}
	switch {
	case slot != "" && at != "":
		return errors.New("--slot and --time are mutually exclusive")
	case slot != "":
		out.Slot, err = strconv.ParseUint(slot, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid slot %q: %w", slot, err)
		}
		out.Time = slotCfg.TimeFromSlot(out.Slot)
	default:
		t := now
		if at != "" {
			t, err = time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid time %q: %w", at, err)
			}
		}
		out.Slot = slotCfg.SlotFromTime(t)
		out.Time = slotCfg.TimeFromSlot(out.Slot)
	}
	return printJSON(w, out)
}

func slotCommand() *cobra.Command {
	var slot, at string
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Convert between slots and wall-clock time for the configured network",
		Args:  cobra.NoArgs,
		Run: runWithConfig(func(cmd *cobra.Command, _ []string, cfg *config.Config, _ *slog.Logger) error {
			return slotRun(cfg.Network, slot, at, time.Now(), cmd.OutOrStdout())
		}),
	}
	cmd.Flags().StringVar(&slot, "slot", "", "slot number to convert to a time")
	cmd.Flags().StringVar(&at, "time", "", "RFC 3339 time to convert to a slot")
	return cmd
}

type convertOutput struct {
	Lovelace uint64 `json:"lovelace"`
	Ada      string `json:"ada"`
}

func convertRun(lovelace, ada string, w io.Writer) error {
	var out convertOutput
	switch {
	case lovelace != "" && ada != "":
		return errors.New("--lovelace and --ada are mutually exclusive")
	case lovelace != "":
		v, err := strconv.ParseUint(lovelace, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid lovelace amount %q: %w", lovelace, err)
		}
		out.Lovelace = v
	case ada != "":
		v, err := balance.AdaToLovelace(ada)
		if err != nil {
			return err
		}
		out.Lovelace = v
	default:
		return errors.New("one of --lovelace or --ada is required")
	}
	out.Ada = balance.LovelaceToAda(out.Lovelace)
	return printJSON(w, out)
}

func convertCommand() *cobra.Command {
	var lovelace, ada string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between lovelace and ADA",
		Args:  cobra.NoArgs,
		Run: runWithConfig(func(cmd *cobra.Command, _ []string, _ *config.Config, _ *slog.Logger) error {
			return convertRun(lovelace, ada, cmd.OutOrStdout())
		}),
	}
	cmd.Flags().StringVar(&lovelace, "lovelace", "", "lovelace amount")
	cmd.Flags().StringVar(&ada, "ada", "", "ADA amount, up to six decimal places")
	return cmd
}

func keyHashRun(publicKeyHex string, w io.Writer) error {
	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(publicKey) != 32 {
		return fmt.Errorf("public key must be 32 bytes, got %d", len(publicKey))
	}
	hash := wallet.KeyHash(publicKey)
	_, err = fmt.Fprintln(w, hex.EncodeToString(hash.Bytes()))
	return err
}

func keyHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key-hash <public-key-hex>",
		Short: "Print the Blake2b-224 hash of an Ed25519 public key, as used in native-script policies",
		Args:  cobra.ExactArgs(1),
		Run: runWithConfig(func(cmd *cobra.Command, args []string, _ *config.Config, _ *slog.Logger) error {
			return keyHashRun(args[0], cmd.OutOrStdout())
		}),
	}
}
