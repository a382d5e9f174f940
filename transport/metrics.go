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

package transport

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transport's Prometheus collectors. A
// zero Metrics is usable and records nothing until Register
// is called.
type Metrics struct {
	requests     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	registerOnce sync.Once
}

// Register registers Prometheus metrics with the given
// registry. A nil registry is a no-op.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)
		m.requests = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snowdrift_transport_requests_total",
				Help: "Total number of indexer requests that received a response",
			},
			[]string{"method", "code"},
		)
		m.failures = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snowdrift_transport_failures_total",
				Help: "Total number of indexer requests that failed at the network level",
			},
			[]string{"method", "reason"},
		)
		m.duration = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snowdrift_transport_request_duration_seconds",
				Help:    "Indexer request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)
	})
}

func (m *Metrics) observeResponse(
	method string,
	code int,
	elapsed time.Duration,
) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFailure(method string, reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(method, reason).Inc()
}
