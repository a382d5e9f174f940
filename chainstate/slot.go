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
	"fmt"
	"strings"
	"time"
)

// SlotConfig maps slots to wall-clock time from a reference
// slot onward.
type SlotConfig struct {
	ZeroSlot   uint64
	ZeroTime   time.Time
	SlotLength time.Duration
}

var slotConfigs = map[string]SlotConfig{
	"mainnet": {
		ZeroSlot:   4492800,
		ZeroTime:   time.Unix(1596059091, 0).UTC(),
		SlotLength: time.Second,
	},
	"preprod": {
		ZeroSlot:   86400,
		ZeroTime:   time.Unix(1655769600, 0).UTC(),
		SlotLength: time.Second,
	},
	"preview": {
		ZeroSlot:   0,
		ZeroTime:   time.Unix(1666656000, 0).UTC(),
		SlotLength: time.Second,
	},
}

// SlotConfigForNetwork returns the slot configuration of a
// public network.
func SlotConfigForNetwork(network string) (SlotConfig, error) {
	if network == "" {
		network = "mainnet"
	}
	cfg, ok := slotConfigs[strings.ToLower(network)]
	if !ok {
		return SlotConfig{}, fmt.Errorf("no slot configuration for network %q", network)
	}
	return cfg, nil
}

// SlotFromTime returns the slot containing t. Times before
// the reference time map to ZeroSlot.
func (c SlotConfig) SlotFromTime(t time.Time) uint64 {
	if !t.After(c.ZeroTime) || c.SlotLength <= 0 {
		return c.ZeroSlot
	}
	return c.ZeroSlot + uint64(t.Sub(c.ZeroTime)/c.SlotLength)
}

// TimeFromSlot returns the start time of slot. Slots before
// ZeroSlot map to ZeroTime.
func (c SlotConfig) TimeFromSlot(slot uint64) time.Time {
	if slot <= c.ZeroSlot {
		return c.ZeroTime
	}
	//nolint:gosec
	return c.ZeroTime.Add(time.Duration(slot-c.ZeroSlot) * c.SlotLength)
}
