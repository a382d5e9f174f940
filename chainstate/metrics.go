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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the chain state gauges.
type Metrics struct {
	tipSlot         prometheus.Gauge
	tipHeight       prometheus.Gauge
	epoch           prometheus.Gauge
	refreshFailures prometheus.Counter
	registerOnce    sync.Once
}

// Register registers Prometheus metrics with the given
// registry. A nil registry is a no-op.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)
		m.tipSlot = factory.NewGauge(prometheus.GaugeOpts{
			Name: "snowdrift_chain_tip_slot",
			Help: "Slot of the latest block in the chain state snapshot",
		})
		m.tipHeight = factory.NewGauge(prometheus.GaugeOpts{
			Name: "snowdrift_chain_tip_height",
			Help: "Height of the latest block in the chain state snapshot",
		})
		m.epoch = factory.NewGauge(prometheus.GaugeOpts{
			Name: "snowdrift_chain_epoch",
			Help: "Epoch of the protocol parameters in the chain state snapshot",
		})
		m.refreshFailures = factory.NewCounter(prometheus.CounterOpts{
			Name: "snowdrift_chain_refresh_failures_total",
			Help: "Total number of failed chain state refreshes",
		})
	})
}

func (m *Metrics) observe(s *Snapshot) {
	if m == nil || m.tipSlot == nil {
		return
	}
	m.tipSlot.Set(float64(s.Tip.Slot))
	m.tipHeight.Set(float64(s.Tip.Height))
	m.epoch.Set(float64(s.Epoch))
}

func (m *Metrics) refreshFailed() {
	if m == nil || m.refreshFailures == nil {
		return
	}
	m.refreshFailures.Inc()
}
