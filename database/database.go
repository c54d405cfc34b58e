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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/scholarhub/database/plugin"
	"github.com/blinklabs-io/scholarhub/database/plugin/blob"
	"github.com/blinklabs-io/scholarhub/database/plugin/blob/badger"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"

	// DefaultMaxLifetimeExtensions caps the keys one commit rewrites when
	// extending state lifetime
	DefaultMaxLifetimeExtensions = 1000
)

// Config holds the settings used to open a Database
type Config struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	// DataDir is the storage directory. Empty keeps everything in memory
	DataDir string
	// TTLPolicy controls expiry of contract state. The zero value stores
	// state without expiry
	TTLPolicy types.TTLPolicy
	// MaxLifetimeExtensions caps the keys a single commit extends. Zero
	// uses DefaultMaxLifetimeExtensions
	MaxLifetimeExtensions int
}

type Database struct {
	logger        *slog.Logger
	blob          blob.BlobStore
	metadata      metadata.MetadataStore
	dataDir       string
	ttlPolicy     types.TTLPolicy
	maxExtensions int
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// TTLPolicy returns the expiry policy applied to contract state
func (d *Database) TTLPolicy() types.TTLPolicy {
	return d.ttlPolicy
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	// Close metadata
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	// Close blob
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance with optional persistence using the
// configured data directory
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	blobPlugin := cfg.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	badger.SetRuntimeOptions(cfg.Logger, cfg.PromRegistry)
	sqlite.SetRuntimeOptions(cfg.Logger, cfg.PromRegistry)
	if err := plugin.SetPluginOption(
		plugin.PluginTypeBlob,
		blobPlugin,
		"data-dir",
		cfg.DataDir,
	); err != nil {
		return nil, err
	}
	if err := plugin.SetPluginOption(
		plugin.PluginTypeMetadata,
		metadataPlugin,
		"data-dir",
		cfg.DataDir,
	); err != nil {
		return nil, err
	}
	metadataDb, err := metadata.New(metadataPlugin)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	blobDb, err := blob.New(blobPlugin)
	if err != nil {
		_ = metadataDb.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	maxExtensions := cfg.MaxLifetimeExtensions
	if maxExtensions <= 0 {
		maxExtensions = DefaultMaxLifetimeExtensions
	}
	db := &Database{
		logger:        cfg.Logger,
		blob:          blobDb,
		metadata:      metadataDb,
		dataDir:       cfg.DataDir,
		ttlPolicy:     cfg.TTLPolicy,
		maxExtensions: maxExtensions,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
