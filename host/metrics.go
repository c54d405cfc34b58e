// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type hostMetrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	events      *prometheus.CounterVec
	ttlExtended prometheus.Counter
}

func (h *Host) initMetrics() {
	promautoFactory := promauto.With(h.promRegistry)
	h.metrics = &hostMetrics{
		invocations: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_invocations_total",
				Help: "contract invocations, by contract, operation and result",
			},
			[]string{"contract", "operation", "result"},
		),
		duration: promautoFactory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_invocation_duration_seconds",
				Help:    "contract invocation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"contract", "operation"},
		),
		events: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_events_emitted_total",
				Help: "committed contract events, by topic",
			},
			[]string{"topic"},
		),
		ttlExtended: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_ttl_extended_keys_total",
				Help: "contract state keys whose lifetime was extended",
			},
		),
	}
}
