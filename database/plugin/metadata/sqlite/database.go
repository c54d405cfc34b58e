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

package sqlite

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	eventPruneInterval = time.Hour

	commitTimestampRowId = 1
)

// commitState is the single row written by every coordinated commit. It
// also records the newest event log ID at that commit, so a later
// recovery can report which events survived
type commitState struct {
	ID          uint `gorm:"primarykey"`
	Timestamp   int64
	LastEventID uint
}

func (commitState) TableName() string {
	return "commit_timestamp"
}

// sqliteTxn wraps a gorm transaction and implements types.Txn. Read-only
// transactions don't hold a connection and read through the store handle
type sqliteTxn struct {
	store     *MetadataStoreSqlite
	tx        *gorm.DB
	err       error
	readWrite bool
	finished  bool
}

func (t *sqliteTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.tx == nil {
		return nil
	}
	return t.tx.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.tx == nil {
		return nil
	}
	return t.tx.Rollback().Error
}

// MetadataStoreSqlite is a SQLite-based implementation of the metadata store.
// It holds the contract event log and the commit timestamp
type MetadataStoreSqlite struct {
	promRegistry   prometheus.Registerer
	eventsPruned   prometheus.Counter
	db             *gorm.DB
	logger         *slog.Logger
	timerVacuum    *time.Timer
	timerPrune     *time.Timer
	dataDir        string
	eventRetention time.Duration
	timerMutex     sync.Mutex
	backgroundWG   sync.WaitGroup
	closed         bool
}

// New creates a SQLite metadata store. Uses in-memory database if dataDir is empty.
func New(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	db := &MetadataStoreSqlite{}
	for _, opt := range opts {
		opt(db)
	}
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	if db.dataDir == "" {
		// Each in-memory store gets its own named database so that
		// separate stores in one process don't share tables
		dsn := fmt.Sprintf(
			"file:%s?mode=memory&cache=shared",
			uuid.NewString(),
		)
		metadataDb, err := gorm.Open(sqlite.Open(dsn), gormConfig)
		if err != nil {
			return nil, err
		}
		sqlDb, err := metadataDb.DB()
		if err != nil {
			return nil, err
		}
		// A shared-cache memory database locks whole tables, so use a
		// single connection and let callers queue on it. Keeping the
		// connection open also keeps the database alive
		sqlDb.SetMaxOpenConns(1)
		sqlDb.SetMaxIdleConns(1)
		sqlDb.SetConnMaxLifetime(0)
		db.db = metadataDb
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(db.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			// Create data directory
			if err := os.MkdirAll(db.dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		// Open sqlite DB
		metadataDbPath := filepath.Join(
			db.dataDir,
			"metadata.sqlite",
		)
		// WAL journal mode, wait on locks, increase cache size to 50MB (from 2MB)
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-50000)"
		metadataDb, err := gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
		db.db = metadataDb
	}
	if err := db.init(); err != nil {
		// MetadataStoreSqlite is available for recovery, so return it with error
		return db, err
	}
	// Create table schemas
	if err := db.db.AutoMigrate(&commitState{}); err != nil {
		return db, err
	}
	for _, model := range models.MigrateModels {
		db.logger.Debug(
			fmt.Sprintf("creating table: %#v", model),
			"component", "database",
		)
		if err := db.db.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

func (d *MetadataStoreSqlite) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.promRegistry != nil {
		d.eventsPruned = promauto.With(d.promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "database_metadata_events_pruned_total",
				Help: "number of contract events removed by retention",
			},
		)
	}
	// Configure tracing for GORM
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	// Schedule daily database vacuum to free unused space
	d.scheduleDailyVacuum()
	// Schedule event log pruning when a retention is set
	d.scheduleEventPrune()
	return nil
}

func (d *MetadataStoreSqlite) runVacuum() error {
	d.timerMutex.Lock()
	if d.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	d.backgroundWG.Add(1)
	d.timerMutex.Unlock()
	defer d.backgroundWG.Done()

	if result := d.DB().Exec("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (d *MetadataStoreSqlite) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}

	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	daily := time.Duration(24) * time.Hour
	f := func() {
		d.logger.Debug(
			"running vacuum on sqlite metadata database",
			"component", "database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerVacuum = time.AfterFunc(daily, f)
}

// PruneEvents removes contract events created before the cutoff and
// returns how many were removed
func (d *MetadataStoreSqlite) PruneEvents(cutoff time.Time) (int64, error) {
	result := d.DB().
		Where("created_at < ?", cutoff).
		Delete(&models.ContractEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	if d.eventsPruned != nil {
		d.eventsPruned.Add(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}

func (d *MetadataStoreSqlite) runEventPrune() error {
	d.timerMutex.Lock()
	if d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	d.backgroundWG.Add(1)
	d.timerMutex.Unlock()
	defer d.backgroundWG.Done()

	count, err := d.PruneEvents(time.Now().Add(-d.eventRetention))
	if err != nil {
		return err
	}
	if count > 0 {
		d.logger.Debug(
			fmt.Sprintf("pruned %d contract events", count),
			"component", "database",
		)
	}
	return nil
}

// scheduleEventPrune schedules periodic removal of expired contract events
func (d *MetadataStoreSqlite) scheduleEventPrune() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed || d.eventRetention <= 0 {
		return
	}

	if d.timerPrune != nil {
		d.timerPrune.Stop()
	}
	f := func() {
		// schedule next run
		defer d.scheduleEventPrune()
		if err := d.runEventPrune(); err != nil {
			d.logger.Error(
				"failed to prune contract events in metadata store",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerPrune = time.AfterFunc(eventPruneInterval, f)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Start() error {
	// Database is already opened in New(), so this is a no-op
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Stop() error {
	return d.Close()
}

// AutoMigrate creates or updates database schema for the given models.
func (d *MetadataStoreSqlite) AutoMigrate(dst ...any) error {
	return d.DB().AutoMigrate(dst...)
}

// Close shuts down the database connection and stops background processes.
func (d *MetadataStoreSqlite) Close() error {
	d.timerMutex.Lock()
	if d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	if d.timerPrune != nil {
		d.timerPrune.Stop()
		d.timerPrune = nil
	}
	d.timerMutex.Unlock()

	// Wait for any in-flight background operations to complete
	d.backgroundWG.Wait()

	// get DB handle from gorm.DB
	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the underlying GORM database handle.
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}

// NewTransaction starts a new transaction. Read-write transactions hold
// a database transaction until committed or rolled back
func (d *MetadataStoreSqlite) NewTransaction(readWrite bool) types.Txn {
	txn := &sqliteTxn{store: d, readWrite: readWrite}
	if readWrite {
		tx := d.DB().Begin()
		if tx.Error != nil {
			txn.err = tx.Error
		} else {
			txn.tx = tx
		}
	}
	return txn
}

// resolveDB returns the handle to run a query on for the given
// transaction. A nil transaction runs directly against the database
func (d *MetadataStoreSqlite) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.DB(), nil
	}
	sqlTxn, ok := txn.(*sqliteTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if sqlTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if sqlTxn.finished {
		return nil, errors.New("transaction already finished")
	}
	if sqlTxn.err != nil {
		return nil, fmt.Errorf(
			"%w: %w",
			types.ErrMetadataStoreUnavailable,
			sqlTxn.err,
		)
	}
	if sqlTxn.tx != nil {
		return sqlTxn.tx, nil
	}
	return d.DB(), nil
}

// resolveWriteDB is resolveDB for statements that modify data
func (d *MetadataStoreSqlite) resolveWriteDB(txn types.Txn) (*gorm.DB, error) {
	if sqlTxn, ok := txn.(*sqliteTxn); ok && !sqlTxn.readWrite {
		return nil, types.ErrReadOnlyTxn
	}
	return d.resolveDB(txn)
}

func (d *MetadataStoreSqlite) commitState(db *gorm.DB) (commitState, error) {
	var ret commitState
	result := db.Where("id = ?", commitTimestampRowId).Limit(1).Find(&ret)
	return ret, result.Error
}

// GetCommitTimestamp returns the timestamp of the last coordinated commit,
// or 0 if nothing has been committed yet
func (d *MetadataStoreSqlite) GetCommitTimestamp() (int64, error) {
	state, err := d.commitState(d.DB())
	if err != nil {
		return 0, err
	}
	return state.Timestamp, nil
}

// GetLastCommittedEventID returns the newest event log ID recorded by a
// coordinated commit
func (d *MetadataStoreSqlite) GetLastCommittedEventID() (uint, error) {
	state, err := d.commitState(d.DB())
	if err != nil {
		return 0, err
	}
	return state.LastEventID, nil
}

// SetCommitTimestamp records the commit timestamp along with the newest
// event log ID visible in txn. The recorded ID never moves backward, even
// once retention has pruned the rows it refers to
func (d *MetadataStoreSqlite) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	db, err := d.resolveWriteDB(txn)
	if err != nil {
		return err
	}
	state, err := d.commitState(db)
	if err != nil {
		return err
	}
	var lastEventID uint
	result := db.Model(&models.ContractEvent{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&lastEventID)
	if result.Error != nil {
		return result.Error
	}
	state.ID = commitTimestampRowId
	state.Timestamp = timestamp
	state.LastEventID = max(state.LastEventID, lastEventID)
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"timestamp", "last_event_id"},
		),
	}).Create(&state).Error
}
