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

package build

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	registrations prometheus.Counter
	verifications *prometheus.CounterVec
}

func (r *Registry) initMetrics() {
	promautoFactory := promauto.With(r.promRegistry)
	r.metrics = &registryMetrics{
		registrations: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "build_registrations_total",
			Help: "build records registered, including overwrites",
		}),
		verifications: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "build_verifications_total",
				Help: "build verification attempts, by result",
			},
			[]string{"result"},
		),
	}
}

func (r *Registry) recordVerification(err error) {
	if r.metrics == nil {
		return
	}
	result := "verified"
	if errors.Is(err, ErrBuildNotFound) {
		result = "not_found"
	} else if err != nil {
		result = "error"
	}
	r.metrics.verifications.WithLabelValues(result).Inc()
}
