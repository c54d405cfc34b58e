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
	"fmt"
	"math"

	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/host"
)

// StatsAggregator maintains the DAO totals. They only change through the
// submission, approval and distribution transitions
type StatsAggregator struct{}

// Get returns the current totals, all zero before initialization
func (StatsAggregator) Get(env *host.Env) (*models.DaoStats, error) {
	return env.DB().GetDaoStats(env.Txn())
}

func (s StatsAggregator) update(
	env *host.Env,
	fn func(*models.DaoStats) error,
) (*models.DaoStats, error) {
	stats, err := s.Get(env)
	if err != nil {
		return nil, err
	}
	if err := fn(stats); err != nil {
		return nil, err
	}
	if err := env.DB().SetDaoStats(stats, env.Txn()); err != nil {
		return nil, err
	}
	return stats, nil
}

func increment(counter *uint64, by uint64, name string) error {
	if *counter > math.MaxUint64-by {
		return fmt.Errorf("%w: %s", ErrCounterOverflow, name)
	}
	*counter += by
	return nil
}

// RecordSubmission counts a new application
func (s StatsAggregator) RecordSubmission(env *host.Env) (*models.DaoStats, error) {
	return s.update(env, func(stats *models.DaoStats) error {
		return increment(&stats.TotalApplications, 1, "total applications")
	})
}

// RecordApproval counts an application that became approved
func (s StatsAggregator) RecordApproval(env *host.Env) (*models.DaoStats, error) {
	return s.update(env, func(stats *models.DaoStats) error {
		return increment(&stats.ApprovedApplications, 1, "approved applications")
	})
}

// RecordDistribution counts a distributed scholarship and its funds
func (s StatsAggregator) RecordDistribution(
	env *host.Env,
	amount uint64,
) (*models.DaoStats, error) {
	return s.update(env, func(stats *models.DaoStats) error {
		if err := increment(
			&stats.DistributedScholarships,
			1,
			"distributed scholarships",
		); err != nil {
			return err
		}
		return increment(
			&stats.TotalFundsDistributed,
			amount,
			"total funds distributed",
		)
	})
}
