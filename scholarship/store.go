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
	"errors"
	"fmt"
	"math"

	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/host"
)

const (
	// NotFoundText is the title and description of the placeholder
	// returned for a missing application
	NotFoundText = "Not_Found"
	// NotFoundApplicant is the all-zero account address used as the
	// applicant of the placeholder
	NotFoundApplicant = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"
)

// NotFoundApplication returns the placeholder record for a missing
// application. Its AppId is 0, which no stored application has
func NotFoundApplication() *models.Scholarship {
	return &models.Scholarship{
		Applicant: NotFoundApplicant,
		Title:     NotFoundText,
		Descrip:   NotFoundText,
	}
}

// ApplicationStore keeps applications and the application counter
type ApplicationStore struct{}

// Submit stores a new application under the next id and returns it
func (ApplicationStore) Submit(
	env *host.Env,
	applicant host.Identity,
	title string,
	descrip string,
	amountRequested uint64,
) (*models.Scholarship, error) {
	count, err := env.DB().GetApplicationCount(env.Txn())
	if err != nil {
		return nil, err
	}
	if count == math.MaxUint64 {
		return nil, fmt.Errorf("%w: application id", ErrCounterOverflow)
	}
	app := &models.Scholarship{
		AppId:           count + 1,
		Applicant:       string(applicant),
		Title:           title,
		Descrip:         descrip,
		AmountRequested: amountRequested,
		Timestamp:       env.Now(),
	}
	if err := env.DB().SetScholarship(app, env.Txn()); err != nil {
		return nil, err
	}
	if err := env.DB().SetApplicationCount(app.AppId, env.Txn()); err != nil {
		return nil, err
	}
	return app, nil
}

// Get returns the stored application. A missing application yields the
// placeholder record along with ErrApplicationNotFound
func (ApplicationStore) Get(
	env *host.Env,
	appId uint64,
) (*models.Scholarship, error) {
	app, err := env.DB().GetScholarship(appId, env.Txn())
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return NotFoundApplication(), fmt.Errorf(
				"%w: %d",
				ErrApplicationNotFound,
				appId,
			)
		}
		return nil, err
	}
	return app, nil
}

// Put replaces a stored application
func (ApplicationStore) Put(env *host.Env, app *models.Scholarship) error {
	return env.DB().SetScholarship(app, env.Txn())
}

// Count returns the number of submitted applications
func (ApplicationStore) Count(env *host.Env) (uint64, error) {
	return env.DB().GetApplicationCount(env.Txn())
}

// VoteLedger remembers which voters have voted on which applications
type VoteLedger struct{}

// HasVoted reports whether voter has voted on the application
func (VoteLedger) HasVoted(
	env *host.Env,
	appId uint64,
	voter host.Identity,
) (bool, error) {
	return env.DB().HasVote(appId, string(voter), env.Txn())
}

// RecordVote marks that voter has voted on the application
func (VoteLedger) RecordVote(
	env *host.Env,
	appId uint64,
	voter host.Identity,
	voteFor bool,
) error {
	return env.DB().SetVote(
		appId,
		string(voter),
		&models.Vote{VoteFor: voteFor, CastAt: env.Now()},
		env.Txn(),
	)
}
