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

package api

import (
	"context"

	"github.com/blinklabs-io/scholarhub/build"
	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/blinklabs-io/scholarhub/scholarship"
)

// Backend is what the API server calls into. It decouples the HTTP layer
// from the concrete contracts and enables testing with other
// implementations
type Backend interface {
	SubmitApplication(
		ctx context.Context,
		applicant host.Identity,
		title string,
		descrip string,
		amountRequested uint64,
	) (uint64, error)
	VoteOnApplication(
		ctx context.Context,
		voter host.Identity,
		appId uint64,
		voteFor bool,
	) error
	DistributeScholarship(ctx context.Context, appId uint64) error
	GetApplication(ctx context.Context, appId uint64) (*models.Scholarship, error)
	ListApplications(
		ctx context.Context,
		from uint64,
		limit int,
	) ([]models.Scholarship, error)
	GetDaoStats(ctx context.Context) (*models.DaoStats, error)

	RegisterBuild(
		ctx context.Context,
		buildId uint64,
		builder string,
		repoUrl string,
		description string,
	) error
	VerifyBuild(ctx context.Context, buildId uint64) error
	IsBuildVerified(ctx context.Context, buildId uint64) (bool, error)
	GetBuild(ctx context.Context, buildId uint64) (*models.BuildRecord, error)

	GetEvents(
		ctx context.Context,
		query metadata.EventQuery,
	) ([]models.ContractEvent, error)
}

// contracts adapts the DAO, the build registry and the event log to Backend
type contracts struct {
	*scholarship.Dao
	*build.Registry
	db *database.Database
}

// NewBackend returns a Backend backed by the given contracts
func NewBackend(
	dao *scholarship.Dao,
	registry *build.Registry,
	db *database.Database,
) Backend {
	return &contracts{Dao: dao, Registry: registry, db: db}
}

func (c *contracts) GetEvents(
	_ context.Context,
	query metadata.EventQuery,
) ([]models.ContractEvent, error) {
	return c.db.GetEvents(query, nil)
}
