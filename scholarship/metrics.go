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

package scholarship

import (
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type daoMetrics struct {
	totalApplications       prometheus.Gauge
	approvedApplications    prometheus.Gauge
	distributedScholarships prometheus.Gauge
	totalFundsDistributed   prometheus.Gauge
	votes                   *prometheus.CounterVec
}

func (d *Dao) initMetrics() {
	promautoFactory := promauto.With(d.promRegistry)
	d.metrics = &daoMetrics{
		totalApplications: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "dao_applications_total",
			Help: "submitted scholarship applications",
		}),
		approvedApplications: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "dao_applications_approved",
			Help: "approved scholarship applications",
		}),
		distributedScholarships: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "dao_scholarships_distributed",
			Help: "distributed scholarships",
		}),
		totalFundsDistributed: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "dao_funds_distributed",
			Help: "total funds distributed to scholarships",
		}),
		votes: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dao_votes_total",
				Help: "recorded votes, by direction",
			},
			[]string{"direction"},
		),
	}
}

func (d *Dao) updateStatsMetrics(stats *models.DaoStats) {
	if d.metrics == nil || stats == nil {
		return
	}
	d.metrics.totalApplications.Set(float64(stats.TotalApplications))
	d.metrics.approvedApplications.Set(float64(stats.ApprovedApplications))
	d.metrics.distributedScholarships.Set(float64(stats.DistributedScholarships))
	d.metrics.totalFundsDistributed.Set(float64(stats.TotalFundsDistributed))
}
