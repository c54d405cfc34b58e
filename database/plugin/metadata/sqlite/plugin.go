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
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/scholarhub/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cmdlineOptions struct {
		promRegistry       prometheus.Registerer
		logger             *slog.Logger
		dataDir            string
		eventRetentionDays uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

// initCmdlineOptions sets default values for cmdlineOptions
func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.dataDir = ".scholarhub"
	cmdlineOptions.eventRetentionDays = 0
}

// Register plugin
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory for sqlite storage (empty for in-memory)",
					DefaultValue: ".scholarhub",
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "event-retention-days",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Days to keep contract events (0 keeps them forever)",
					DefaultValue: uint64(0),
					Dest:         &(cmdlineOptions.eventRetentionDays),
				},
			},
		},
	)
}

// SetRuntimeOptions hands the plugin the process logger and metrics
// registry, which can't be expressed as command line options
func SetRuntimeOptions(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.logger = logger
	cmdlineOptions.promRegistry = promRegistry
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []SqliteOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithEventRetention(
			time.Duration(cmdlineOptions.eventRetentionDays) * 24 * time.Hour, //nolint:gosec
		),
		WithLogger(cmdlineOptions.logger),
		WithPromRegistry(cmdlineOptions.promRegistry),
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := New(opts...)
	if err != nil {
		// Return a plugin that defers the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
