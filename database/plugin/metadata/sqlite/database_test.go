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

package sqlite_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New(
		sqlite.WithPromRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEvent(topic string) *models.ContractEvent {
	return &models.ContractEvent{
		EventID:  uuid.NewString(),
		Contract: "scholarship",
		Topic:    topic,
		Payload:  []byte{0x01},
	}
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	first := newStore(t)
	second := newStore(t)
	require.NoError(t, first.AddEvent(testEvent("a"), nil))
	count, err := second.CountEvents("", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAddAndGetEvents(t *testing.T) {
	store := newStore(t)
	txn := store.NewTransaction(true)
	for _, topic := range []string{"submitted", "vote", "vote", "approved"} {
		require.NoError(t, store.AddEvent(testEvent(topic), txn))
	}
	require.NoError(t, txn.Commit())

	events, err := store.GetEvents(metadata.EventQuery{}, nil)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "submitted", events[0].Topic)
	assert.Equal(t, "approved", events[3].Topic)

	votes, err := store.GetEvents(metadata.EventQuery{Topic: "vote"}, nil)
	require.NoError(t, err)
	assert.Len(t, votes, 2)

	after, err := store.GetEvents(
		metadata.EventQuery{AfterID: events[1].ID, Limit: 1},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, events[2].EventID, after[0].EventID)

	count, err := store.CountEvents("vote", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRollbackDiscardsEvents(t *testing.T) {
	store := newStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.AddEvent(testEvent("submitted"), txn))
	require.NoError(t, txn.Rollback())

	count, err := store.CountEvents("", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAddEventRequiresID(t *testing.T) {
	store := newStore(t)
	err := store.AddEvent(&models.ContractEvent{Topic: "x"}, nil)
	assert.Error(t, err)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	store := newStore(t)
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	err := store.AddEvent(testEvent("submitted"), txn)
	assert.ErrorIs(t, err, types.ErrReadOnlyTxn)
	err = store.SetCommitTimestamp(1, txn)
	assert.ErrorIs(t, err, types.ErrReadOnlyTxn)
}

func TestCommitTimestamp(t *testing.T) {
	store := newStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(42, txn))
	require.NoError(t, txn.Commit())
	txn = store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(43, txn))
	require.NoError(t, txn.Commit())

	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(43), ts)
}

func TestCommitRecordsLastEventID(t *testing.T) {
	store := newStore(t)
	lastID, err := store.GetLastCommittedEventID()
	require.NoError(t, err)
	assert.Equal(t, uint(0), lastID)

	txn := store.NewTransaction(true)
	first := testEvent("submitted")
	require.NoError(t, store.AddEvent(first, txn))
	second := testEvent("vote")
	require.NoError(t, store.AddEvent(second, txn))
	require.NoError(t, store.SetCommitTimestamp(10, txn))
	require.NoError(t, txn.Commit())
	lastID, err = store.GetLastCommittedEventID()
	require.NoError(t, err)
	assert.Equal(t, second.ID, lastID)

	// Events from a rolled back commit are not recorded
	txn = store.NewTransaction(true)
	require.NoError(t, store.AddEvent(testEvent("approved"), txn))
	require.NoError(t, store.SetCommitTimestamp(11, txn))
	require.NoError(t, txn.Rollback())
	lastID, err = store.GetLastCommittedEventID()
	require.NoError(t, err)
	assert.Equal(t, second.ID, lastID)

	// Pruning the log doesn't move the recorded ID backward
	_, err = store.PruneEvents(time.Now().Add(time.Hour))
	require.NoError(t, err)
	txn = store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(12, txn))
	require.NoError(t, txn.Commit())
	lastID, err = store.GetLastCommittedEventID()
	require.NoError(t, err)
	assert.Equal(t, second.ID, lastID)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(12), ts)
}

func TestPruneEvents(t *testing.T) {
	store := newStore(t)
	old := testEvent("old")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.AddEvent(old, nil))
	require.NoError(t, store.AddEvent(testEvent("new"), nil))

	pruned, err := store.PruneEvents(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	events, err := store.GetEvents(metadata.EventQuery{}, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Topic)
}

func TestOnDiskStore(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.New(sqlite.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, store.AddEvent(testEvent("submitted"), nil))
	require.NoError(t, store.Close())

	store, err = sqlite.New(sqlite.WithDataDir(dir))
	require.NoError(t, err)
	defer store.Close()
	count, err := store.CountEvents("submitted", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
