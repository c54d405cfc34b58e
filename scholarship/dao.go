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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type DaoOptionFunc func(*Dao)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) DaoOptionFunc {
	return func(d *Dao) {
		d.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) DaoOptionFunc {
	return func(d *Dao) {
		d.promRegistry = registry
	}
}

// Dao is the scholarship DAO contract
type Dao struct {
	host         *host.Host
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *daoMetrics
	apps         ApplicationStore
	votes        VoteLedger
	stats        StatsAggregator
}

func New(h *host.Host, opts ...DaoOptionFunc) *Dao {
	d := &Dao{host: h}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.promRegistry != nil {
		d.initMetrics()
	}
	return d
}

func (d *Dao) invoke(
	ctx context.Context,
	operation string,
	fn func(*host.Env) error,
) error {
	return d.host.Invoke(ctx, event.ContractScholarship, operation, fn)
}

func (d *Dao) view(
	ctx context.Context,
	operation string,
	fn func(*host.Env) error,
) error {
	return d.host.View(ctx, event.ContractScholarship, operation, fn)
}

// Init stores the application counter and DAO totals if the contract
// state has never been initialized. Existing state is left unchanged
func (d *Dao) Init(ctx context.Context) error {
	var stats *models.DaoStats
	err := d.invoke(ctx, "init", func(env *host.Env) error {
		var err error
		stats, err = d.stats.Get(env)
		if err != nil {
			return err
		}
		_, err = env.DB().GetGenesis(env.Txn())
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrRecordNotFound) {
			return err
		}
		count, err := d.apps.Count(env)
		if err != nil {
			return err
		}
		if err := env.DB().SetApplicationCount(count, env.Txn()); err != nil {
			return err
		}
		if err := env.DB().SetDaoStats(stats, env.Txn()); err != nil {
			return err
		}
		d.logger.Info(
			"initialized scholarship DAO state",
			"component", "dao",
		)
		return env.DB().SetGenesis(
			&models.Genesis{InitializedAt: env.Now()},
			env.Txn(),
		)
	})
	if err != nil {
		return err
	}
	d.updateStatsMetrics(stats)
	return nil
}

// SubmitApplication stores a new application on behalf of applicant and
// returns its id
func (d *Dao) SubmitApplication(
	ctx context.Context,
	applicant host.Identity,
	title string,
	descrip string,
	amountRequested uint64,
) (uint64, error) {
	var app *models.Scholarship
	var stats *models.DaoStats
	err := d.invoke(ctx, "submit_application", func(env *host.Env) error {
		if err := env.RequireAuth(applicant); err != nil {
			return err
		}
		var err error
		app, err = d.apps.Submit(env, applicant, title, descrip, amountRequested)
		if err != nil {
			return err
		}
		stats, err = d.stats.RecordSubmission(env)
		if err != nil {
			return err
		}
		return env.Emit(
			event.ScholarshipSubmittedEventType,
			&event.ScholarshipSubmittedEvent{
				AppId:           app.AppId,
				Applicant:       app.Applicant,
				AmountRequested: app.AmountRequested,
			},
		)
	})
	if err != nil {
		return 0, err
	}
	d.updateStatsMetrics(stats)
	d.logger.Info(
		fmt.Sprintf(
			"scholarship application submitted: id %d, amount %d",
			app.AppId,
			app.AmountRequested,
		),
		"component", "dao",
	)
	return app.AppId, nil
}

// VoteOnApplication records a vote by voter. The vote that brings the
// tally to approval approves the application
func (d *Dao) VoteOnApplication(
	ctx context.Context,
	voter host.Identity,
	appId uint64,
	voteFor bool,
) error {
	var approved bool
	var stats *models.DaoStats
	err := d.invoke(ctx, "vote_on_application", func(env *host.Env) error {
		if err := env.RequireAuth(voter); err != nil {
			return err
		}
		voted, err := d.votes.HasVoted(env, appId, voter)
		if err != nil {
			return err
		}
		if voted {
			return fmt.Errorf(
				"%w: %s on application %d",
				ErrAlreadyVoted,
				voter,
				appId,
			)
		}
		app, err := d.apps.Get(env, appId)
		if err != nil {
			return err
		}
		updated, nowApproved, err := ApplyVote(*app, voteFor)
		if err != nil {
			return err
		}
		if err := d.votes.RecordVote(env, appId, voter, voteFor); err != nil {
			return err
		}
		if err := d.apps.Put(env, &updated); err != nil {
			return err
		}
		if err := env.Emit(
			event.ScholarshipVoteEventType,
			&event.ScholarshipVoteEvent{
				AppId:        appId,
				Voter:        string(voter),
				VoteFor:      voteFor,
				VotesFor:     updated.VotesFor,
				VotesAgainst: updated.VotesAgainst,
			},
		); err != nil {
			return err
		}
		if !nowApproved {
			return nil
		}
		approved = true
		stats, err = d.stats.RecordApproval(env)
		if err != nil {
			return err
		}
		return env.Emit(
			event.ScholarshipApprovedEventType,
			&event.ScholarshipApprovedEvent{AppId: appId},
		)
	})
	if err != nil {
		return err
	}
	if d.metrics != nil {
		direction := "against"
		if voteFor {
			direction = "for"
		}
		d.metrics.votes.WithLabelValues(direction).Inc()
	}
	d.logger.Info(
		fmt.Sprintf("vote recorded: id %d, for %t", appId, voteFor),
		"component", "dao",
	)
	if approved {
		d.updateStatsMetrics(stats)
		d.logger.Info(
			fmt.Sprintf("application %d approved", appId),
			"component", "dao",
		)
	}
	return nil
}

// DistributeScholarship marks an approved application as distributed and
// adds its amount to the distributed funds. Any caller may distribute
func (d *Dao) DistributeScholarship(ctx context.Context, appId uint64) error {
	var app *models.Scholarship
	var stats *models.DaoStats
	err := d.invoke(ctx, "distribute_scholarship", func(env *host.Env) error {
		var err error
		app, err = d.apps.Get(env, appId)
		if err != nil {
			return err
		}
		if !app.IsApproved {
			return fmt.Errorf("%w: %d", ErrNotApproved, appId)
		}
		if app.IsDistributed {
			return fmt.Errorf("%w: %d", ErrAlreadyDistributed, appId)
		}
		app.IsDistributed = true
		if err := d.apps.Put(env, app); err != nil {
			return err
		}
		stats, err = d.stats.RecordDistribution(env, app.AmountRequested)
		if err != nil {
			return err
		}
		return env.Emit(
			event.ScholarshipDistributedEventType,
			&event.ScholarshipDistributedEvent{
				AppId:  appId,
				Amount: app.AmountRequested,
			},
		)
	})
	if err != nil {
		return err
	}
	d.updateStatsMetrics(stats)
	d.logger.Info(
		fmt.Sprintf(
			"scholarship distributed: id %d, amount %d",
			appId,
			app.AmountRequested,
		),
		"component", "dao",
	)
	return nil
}

// GetApplication returns the application with the given id. A missing
// application returns the placeholder record (AppId 0, title and
// description "Not_Found") together with ErrApplicationNotFound
func (d *Dao) GetApplication(
	ctx context.Context,
	appId uint64,
) (*models.Scholarship, error) {
	var app *models.Scholarship
	err := d.view(ctx, "get_application", func(env *host.Env) error {
		var err error
		app, err = d.apps.Get(env, appId)
		return err
	})
	return app, err
}

// GetDaoStats returns the DAO totals
func (d *Dao) GetDaoStats(ctx context.Context) (*models.DaoStats, error) {
	var stats *models.DaoStats
	err := d.view(ctx, "get_dao_stats", func(env *host.Env) error {
		var err error
		stats, err = d.stats.Get(env)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListApplications returns up to limit applications in id order, starting
// at id from
func (d *Dao) ListApplications(
	ctx context.Context,
	from uint64,
	limit int,
) ([]models.Scholarship, error) {
	if from == 0 {
		from = 1
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	ret := []models.Scholarship{}
	err := d.view(ctx, "list_applications", func(env *host.Env) error {
		count, err := d.apps.Count(env)
		if err != nil {
			return err
		}
		for appId := from; appId <= count && len(ret) < limit; appId++ {
			app, err := d.apps.Get(env, appId)
			if err != nil {
				return err
			}
			ret = append(ret, *app)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
