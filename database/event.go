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
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/database/types"
)

// AddEvent appends a contract event to the event log as part of txn
func (d *Database) AddEvent(event *models.ContractEvent, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if txn.Metadata() == nil {
		return types.ErrMetadataStoreUnavailable
	}
	return d.Metadata().AddEvent(event, txn.Metadata())
}

// GetEvents returns persisted contract events matching query
func (d *Database) GetEvents(
	query metadata.EventQuery,
	txn *Txn,
) ([]models.ContractEvent, error) {
	txn, release := d.readTxn(txn)
	defer release()
	if txn.Metadata() == nil {
		return nil, types.ErrMetadataStoreUnavailable
	}
	return d.Metadata().GetEvents(query, txn.Metadata())
}
