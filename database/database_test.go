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

package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, policy types.TTLPolicy) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{
		PromRegistry: prometheus.NewRegistry(),
		TTLPolicy:    policy,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestScholarshipRecords(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	_, err := db.GetScholarship(1, nil)
	assert.ErrorIs(t, err, database.ErrRecordNotFound)

	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetScholarship(&models.Scholarship{
			AppId:           1,
			Applicant:       "alice",
			Title:           "Tuition",
			Descrip:         "Fall term",
			AmountRequested: 500,
			Timestamp:       1700000000,
		}, txn); err != nil {
			return err
		}
		if err := db.SetApplicationCount(1, txn); err != nil {
			return err
		}
		return db.SetVote(1, "bob", &models.Vote{VoteFor: true}, txn)
	})
	require.NoError(t, err)

	app, err := db.GetScholarship(1, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", app.Applicant)
	assert.Equal(t, uint64(500), app.AmountRequested)
	assert.False(t, app.IsApproved)

	count, err := db.GetApplicationCount(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	voted, err := db.HasVote(1, "bob", nil)
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = db.HasVote(1, "carol", nil)
	require.NoError(t, err)
	assert.False(t, voted)
	voted, err = db.HasVote(2, "bob", nil)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestDefaultsBeforeInit(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	count, err := db.GetApplicationCount(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	stats, err := db.GetDaoStats(nil)
	require.NoError(t, err)
	assert.Equal(t, models.DaoStats{}, *stats)
	_, err = db.GetGenesis(nil)
	assert.ErrorIs(t, err, database.ErrRecordNotFound)
}

func TestBuildRecords(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	_, err := db.GetBuild(7, nil)
	assert.ErrorIs(t, err, database.ErrRecordNotFound)
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetBuild(&models.BuildRecord{
			BuildId: 7,
			Builder: "ci",
			RepoUrl: "https://example.com/repo.git",
		}, txn)
	})
	require.NoError(t, err)
	build, err := db.GetBuild(7, nil)
	require.NoError(t, err)
	assert.Equal(t, "ci", build.Builder)
	assert.False(t, build.Verified)
}

func TestTxnDoRollsBackOnError(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	errTest := errors.New("test failure")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetApplicationCount(5, txn); err != nil {
			return err
		}
		if err := db.AddEvent(&models.ContractEvent{
			EventID: uuid.NewString(),
			Topic:   "scholarship.submitted",
		}, txn); err != nil {
			return err
		}
		return errTest
	})
	assert.ErrorIs(t, err, errTest)

	count, err := db.GetApplicationCount(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	events, err := db.GetEvents(metadata.EventQuery{}, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventsCommitWithState(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetApplicationCount(1, txn); err != nil {
			return err
		}
		return db.AddEvent(&models.ContractEvent{
			EventID:  uuid.NewString(),
			Contract: "scholarship",
			Topic:    "scholarship.submitted",
		}, txn)
	})
	require.NoError(t, err)
	events, err := db.GetEvents(
		metadata.EventQuery{Topic: "scholarship.submitted"},
		nil,
	)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	txn := db.Transaction(false)
	defer txn.Release()
	err := db.SetApplicationCount(1, txn)
	assert.ErrorIs(t, err, types.ErrReadOnlyTxn)
	err = db.SetApplicationCount(1, nil)
	assert.ErrorIs(t, err, types.ErrNilTxn)
}

func TestExtendLifetime(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{
		Threshold: 2 * time.Hour,
		ExtendTo:  time.Hour,
	})
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetApplicationCount(1, txn); err != nil {
			return err
		}
		return db.SetDaoStats(&models.DaoStats{TotalApplications: 1}, txn)
	})
	require.NoError(t, err)

	// Entries were written with a lifetime of ExtendTo, which is below
	// the threshold, so both get rewritten
	txn := db.Transaction(true)
	extended, err := txn.ExtendLifetime()
	require.NoError(t, err)
	assert.Equal(t, 2, extended)
	require.NoError(t, txn.Commit())

	count, err := db.GetApplicationCount(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestExtendLifetimeBatches(t *testing.T) {
	db, err := database.New(&database.Config{
		TTLPolicy: types.TTLPolicy{
			Threshold: 30 * time.Minute,
			ExtendTo:  2 * time.Hour,
		},
		MaxLifetimeExtensions: 2,
	})
	require.NoError(t, err)
	defer db.Close()
	// Short-lived entries, all below the threshold
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		for appId := range uint64(3) {
			err := db.Blob().SetWithTTL(
				txn.Blob(),
				types.ApplicationKey(appId+1),
				[]byte{0x01},
				10*time.Minute,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	for _, expected := range []int{2, 1, 0} {
		txn := db.Transaction(true)
		extended, err := txn.ExtendLifetime()
		require.NoError(t, err)
		assert.Equal(t, expected, extended)
		require.NoError(t, txn.Commit())
	}
}

func TestExtendLifetimeDisabled(t *testing.T) {
	db := newTestDatabase(t, types.TTLPolicy{})
	txn := db.Transaction(true)
	defer txn.Release()
	require.NoError(t, db.SetApplicationCount(1, txn))
	extended, err := txn.ExtendLifetime()
	require.NoError(t, err)
	assert.Equal(t, 0, extended)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetApplicationCount(1, txn)
	}))
	// Advance only the blob side
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NotNil(t, db)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)

	// Blob state survives recovery
	require.NoError(t, db.RecoverCommitTimestamp())
	count, err := db.GetApplicationCount(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestReopenKeepsState(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetApplicationCount(3, txn)
	}))
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	defer db.Close()
	count, err := db.GetApplicationCount(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
