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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/plugin"
	"github.com/blinklabs-io/scholarhub/database/types"
	"gorm.io/gorm"
)

// EventQuery selects persisted contract events. Zero values match
// everything
type EventQuery struct {
	Topic    string
	Contract string
	// Only return events with an ID greater than AfterID
	AfterID uint
	Limit   int
}

type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	NewTransaction(readWrite bool) types.Txn
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(timestamp int64, txn types.Txn) error
	GetLastCommittedEventID() (uint, error)

	// Event log
	AddEvent(event *models.ContractEvent, txn types.Txn) error
	GetEvents(query EventQuery, txn types.Txn) ([]models.ContractEvent, error)
	CountEvents(topic string, txn types.Txn) (int64, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
