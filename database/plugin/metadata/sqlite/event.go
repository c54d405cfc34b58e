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

	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/database/types"
)

var errEventMissingID = errors.New("contract event has no event ID")

// AddEvent appends a contract event to the event log
func (d *MetadataStoreSqlite) AddEvent(
	event *models.ContractEvent,
	txn types.Txn,
) error {
	if event.EventID == "" {
		return errEventMissingID
	}
	db, err := d.resolveWriteDB(txn)
	if err != nil {
		return err
	}
	return db.Create(event).Error
}

// GetEvents returns contract events in the order they were added
func (d *MetadataStoreSqlite) GetEvents(
	query metadata.EventQuery,
	txn types.Txn,
) ([]models.ContractEvent, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	q := db.Model(&models.ContractEvent{})
	if query.Topic != "" {
		q = q.Where("topic = ?", query.Topic)
	}
	if query.Contract != "" {
		q = q.Where("contract = ?", query.Contract)
	}
	if query.AfterID > 0 {
		q = q.Where("id > ?", query.AfterID)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	var ret []models.ContractEvent
	if result := q.Order("id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountEvents returns the number of stored events with the given topic,
// or all events when topic is empty
func (d *MetadataStoreSqlite) CountEvents(
	topic string,
	txn types.Txn,
) (int64, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	q := db.Model(&models.ContractEvent{})
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	var count int64
	if result := q.Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
