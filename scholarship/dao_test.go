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

package scholarship_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/blinklabs-io/scholarhub/scholarship"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimestamp = 1700000000

type testDao struct {
	dao      *scholarship.Dao
	db       *database.Database
	eventBus *event.EventBus
}

func newTestDao(t *testing.T) *testDao {
	t.Helper()
	registry := prometheus.NewRegistry()
	db, err := database.New(&database.Config{PromRegistry: registry})
	require.NoError(t, err)
	eventBus := event.NewEventBus(registry, nil)
	h, err := host.New(
		host.WithDatabase(db),
		host.WithEventBus(eventBus),
		host.WithClock(host.NewFixedClock(testTimestamp)),
		host.WithPromRegistry(registry),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		eventBus.Stop()
		_ = db.Close()
	})
	dao := scholarship.New(h, scholarship.WithPromRegistry(registry))
	require.NoError(t, dao.Init(context.Background()))
	return &testDao{dao: dao, db: db, eventBus: eventBus}
}

func as(id host.Identity) context.Context {
	return host.WithCaller(context.Background(), id)
}

func (td *testDao) submit(t *testing.T, amount uint64) uint64 {
	t.Helper()
	appId, err := td.dao.SubmitApplication(
		as("alice"),
		"alice",
		"Tuition",
		"Fall term tuition",
		amount,
	)
	require.NoError(t, err)
	return appId
}

func (td *testDao) vote(
	t *testing.T,
	voter host.Identity,
	appId uint64,
	voteFor bool,
) {
	t.Helper()
	require.NoError(t, td.dao.VoteOnApplication(as(voter), voter, appId, voteFor))
}

func (td *testDao) countEvents(t *testing.T, topic event.EventType) int {
	t.Helper()
	events, err := td.db.GetEvents(
		metadata.EventQuery{Topic: string(topic)},
		nil,
	)
	require.NoError(t, err)
	return len(events)
}

func TestSubmitAssignsSequentialIds(t *testing.T) {
	td := newTestDao(t)
	for i := uint64(1); i <= 5; i++ {
		assert.Equal(t, i, td.submit(t, 100*i))
	}
	app, err := td.dao.GetApplication(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), app.AppId)
	assert.Equal(t, "alice", app.Applicant)
	assert.Equal(t, "Tuition", app.Title)
	assert.Equal(t, "Fall term tuition", app.Descrip)
	assert.Equal(t, uint64(300), app.AmountRequested)
	assert.Equal(t, uint64(testTimestamp), app.Timestamp)
	assert.Zero(t, app.VotesFor)
	assert.Zero(t, app.VotesAgainst)
	assert.False(t, app.IsApproved)
	assert.False(t, app.IsDistributed)

	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stats.TotalApplications)
	assert.Equal(t, 5, td.countEvents(t, event.ScholarshipSubmittedEventType))
}

func TestSubmitRequiresAuth(t *testing.T) {
	td := newTestDao(t)
	_, err := td.dao.SubmitApplication(as("mallory"), "alice", "t", "d", 1)
	assert.ErrorIs(t, err, scholarship.ErrUnauthorized)
	_, err = td.dao.SubmitApplication(context.Background(), "alice", "t", "d", 1)
	assert.ErrorIs(t, err, scholarship.ErrUnauthorized)

	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalApplications)
	assert.Equal(t, 0, td.countEvents(t, event.ScholarshipSubmittedEventType))
	// The failed submission did not use up an id
	assert.Equal(t, uint64(1), td.submit(t, 1))
}

func TestGetApplicationNotFound(t *testing.T) {
	td := newTestDao(t)
	app, err := td.dao.GetApplication(context.Background(), 42)
	assert.ErrorIs(t, err, scholarship.ErrApplicationNotFound)
	require.NotNil(t, app)
	assert.Zero(t, app.AppId)
	assert.Equal(t, scholarship.NotFoundText, app.Title)
	assert.Equal(t, scholarship.NotFoundText, app.Descrip)
	assert.Equal(t, scholarship.NotFoundApplicant, app.Applicant)
}

func TestApprovalOnThirdVote(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 1000)
	_, approvedCh := td.eventBus.Subscribe(event.ScholarshipApprovedEventType)

	td.vote(t, "v1", appId, true)
	td.vote(t, "v2", appId, true)
	app, err := td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.False(t, app.IsApproved)

	td.vote(t, "v3", appId, false)
	app, err = td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.True(t, app.IsApproved)
	assert.Equal(t, uint64(2), app.VotesFor)
	assert.Equal(t, uint64(1), app.VotesAgainst)

	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ApprovedApplications)
	assert.Equal(t, 3, td.countEvents(t, event.ScholarshipVoteEventType))
	assert.Equal(t, 1, td.countEvents(t, event.ScholarshipApprovedEventType))

	select {
	case evt := <-approvedCh:
		data, ok := evt.Data.(*event.ScholarshipApprovedEvent)
		require.True(t, ok)
		assert.Equal(t, appId, data.AppId)
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for approval event")
	}
}

func TestTieDoesNotApprove(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 1000)
	td.vote(t, "v1", appId, true)
	td.vote(t, "v2", appId, false)
	app, err := td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.False(t, app.IsApproved)

	// A third vote in favor approves
	td.vote(t, "v3", appId, true)
	app, err = td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.True(t, app.IsApproved)
}

func TestMajorityAgainstNeverApproves(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 1000)
	td.vote(t, "v1", appId, false)
	td.vote(t, "v2", appId, false)
	td.vote(t, "v3", appId, true)
	td.vote(t, "v4", appId, true)
	app, err := td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.False(t, app.IsApproved)
	assert.Equal(t, uint64(2), app.VotesFor)
	assert.Equal(t, uint64(2), app.VotesAgainst)
}

func TestNoDoubleVoting(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 1000)
	td.vote(t, "v1", appId, true)
	err := td.dao.VoteOnApplication(as("v1"), "v1", appId, false)
	assert.ErrorIs(t, err, scholarship.ErrAlreadyVoted)

	app, err := td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), app.VotesFor)
	assert.Zero(t, app.VotesAgainst)
	assert.Equal(t, 1, td.countEvents(t, event.ScholarshipVoteEventType))

	// The same voter can vote on another application
	otherId := td.submit(t, 10)
	td.vote(t, "v1", otherId, false)
}

func TestVoteErrors(t *testing.T) {
	td := newTestDao(t)
	err := td.dao.VoteOnApplication(as("v1"), "v2", 1, true)
	assert.ErrorIs(t, err, scholarship.ErrUnauthorized)

	err = td.dao.VoteOnApplication(as("v1"), "v1", 99, true)
	assert.ErrorIs(t, err, scholarship.ErrApplicationNotFound)
	// The failed vote was not recorded
	voted, err := td.db.HasVote(99, "v1", nil)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestApprovalIsSticky(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 1000)
	td.vote(t, "v1", appId, true)
	td.vote(t, "v2", appId, true)
	td.vote(t, "v3", appId, true)
	err := td.dao.VoteOnApplication(as("v4"), "v4", appId, false)
	assert.ErrorIs(t, err, scholarship.ErrAlreadyApproved)

	app, err := td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.True(t, app.IsApproved)
	assert.Equal(t, uint64(3), app.VotesFor)
	assert.Zero(t, app.VotesAgainst)
	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ApprovedApplications)
	voted, err := td.db.HasVote(appId, "v4", nil)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestAlreadyVotedCheckedBeforeApproval(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 1000)
	td.vote(t, "v1", appId, true)
	td.vote(t, "v2", appId, true)
	td.vote(t, "v3", appId, true)
	err := td.dao.VoteOnApplication(as("v1"), "v1", appId, true)
	assert.ErrorIs(t, err, scholarship.ErrAlreadyVoted)
}

func TestDistribution(t *testing.T) {
	td := newTestDao(t)
	appId := td.submit(t, 750)

	err := td.dao.DistributeScholarship(context.Background(), appId)
	assert.ErrorIs(t, err, scholarship.ErrNotApproved)

	td.vote(t, "v1", appId, true)
	td.vote(t, "v2", appId, true)
	td.vote(t, "v3", appId, true)

	// No caller identity is needed
	require.NoError(t, td.dao.DistributeScholarship(context.Background(), appId))
	err = td.dao.DistributeScholarship(context.Background(), appId)
	assert.ErrorIs(t, err, scholarship.ErrAlreadyDistributed)

	app, err := td.dao.GetApplication(context.Background(), appId)
	require.NoError(t, err)
	assert.True(t, app.IsDistributed)
	assert.True(t, app.IsApproved)

	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.DistributedScholarships)
	assert.Equal(t, uint64(750), stats.TotalFundsDistributed)
	assert.Equal(t, 1, td.countEvents(t, event.ScholarshipDistributedEventType))
}

func TestDistributeMissingApplication(t *testing.T) {
	td := newTestDao(t)
	err := td.dao.DistributeScholarship(context.Background(), 1)
	assert.ErrorIs(t, err, scholarship.ErrApplicationNotFound)
}

func TestStatsInvariant(t *testing.T) {
	td := newTestDao(t)
	voters := []host.Identity{"v1", "v2", "v3"}
	for i := range 6 {
		appId := td.submit(t, uint64(100*(i+1))) //nolint:gosec
		// Approve every other application and distribute every third
		if i%2 == 0 {
			for _, voter := range voters {
				td.vote(t, voter, appId, true)
			}
			if i%3 == 0 {
				require.NoError(
					t,
					td.dao.DistributeScholarship(context.Background(), appId),
				)
			}
		}
	}
	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), stats.TotalApplications)
	assert.Equal(t, uint64(3), stats.ApprovedApplications)
	assert.Equal(t, uint64(1), stats.DistributedScholarships)
	assert.Equal(t, uint64(100), stats.TotalFundsDistributed)
	assert.LessOrEqual(t, stats.ApprovedApplications, stats.TotalApplications)
	assert.LessOrEqual(t, stats.DistributedScholarships, stats.ApprovedApplications)
}

func TestStatsBeforeInit(t *testing.T) {
	db, err := database.New(nil)
	require.NoError(t, err)
	defer db.Close()
	h, err := host.New(host.WithDatabase(db))
	require.NoError(t, err)
	dao := scholarship.New(h)
	stats, err := dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalApplications)
	assert.Zero(t, stats.TotalFundsDistributed)
}

func TestInitKeepsExistingState(t *testing.T) {
	td := newTestDao(t)
	td.submit(t, 5)
	require.NoError(t, td.dao.Init(context.Background()))
	stats, err := td.dao.GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalApplications)
	assert.Equal(t, uint64(2), td.submit(t, 5))
}

func TestListApplications(t *testing.T) {
	td := newTestDao(t)
	for range 5 {
		td.submit(t, 1)
	}
	apps, err := td.dao.ListApplications(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, apps, 5)
	assert.Equal(t, uint64(1), apps[0].AppId)

	apps, err = td.dao.ListApplications(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, uint64(2), apps[0].AppId)
	assert.Equal(t, uint64(3), apps[1].AppId)

	apps, err = td.dao.ListApplications(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Empty(t, apps)
}
