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

	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/types"
)

// GetScholarship returns the application with the given ID, or
// ErrRecordNotFound
func (d *Database) GetScholarship(
	appId uint64,
	txn *Txn,
) (*models.Scholarship, error) {
	var ret models.Scholarship
	if err := d.getRecord(types.ApplicationKey(appId), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// SetScholarship stores an application under its AppId
func (d *Database) SetScholarship(
	scholarship *models.Scholarship,
	txn *Txn,
) error {
	return d.setRecord(
		types.ApplicationKey(scholarship.AppId),
		scholarship,
		txn,
	)
}

// HasVote reports whether voter has voted on the application
func (d *Database) HasVote(appId uint64, voter string, txn *Txn) (bool, error) {
	return d.hasRecord(types.VoteKey(appId, voter), txn)
}

// SetVote records that voter has voted on the application
func (d *Database) SetVote(
	appId uint64,
	voter string,
	vote *models.Vote,
	txn *Txn,
) error {
	return d.setRecord(types.VoteKey(appId, voter), vote, txn)
}

// GetApplicationCount returns the application counter, which is zero
// before the first submission
func (d *Database) GetApplicationCount(txn *Txn) (uint64, error) {
	var ret uint64
	err := d.getRecord([]byte(types.ApplicationCountKey), &ret, txn)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return ret, nil
}

// SetApplicationCount stores the application counter
func (d *Database) SetApplicationCount(count uint64, txn *Txn) error {
	return d.setRecord([]byte(types.ApplicationCountKey), count, txn)
}

// GetDaoStats returns the DAO aggregates, which are all zero if they were
// never stored
func (d *Database) GetDaoStats(txn *Txn) (*models.DaoStats, error) {
	var ret models.DaoStats
	err := d.getRecord([]byte(types.DaoStatsKey), &ret, txn)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return &models.DaoStats{}, nil
		}
		return nil, err
	}
	return &ret, nil
}

// SetDaoStats stores the DAO aggregates
func (d *Database) SetDaoStats(stats *models.DaoStats, txn *Txn) error {
	return d.setRecord([]byte(types.DaoStatsKey), stats, txn)
}

// GetGenesis returns the genesis marker, or ErrRecordNotFound if the
// contract state was never initialized
func (d *Database) GetGenesis(txn *Txn) (*models.Genesis, error) {
	var ret models.Genesis
	if err := d.getRecord([]byte(types.GenesisKey), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// SetGenesis stores the genesis marker
func (d *Database) SetGenesis(genesis *models.Genesis, txn *Txn) error {
	return d.setRecord([]byte(types.GenesisKey), genesis, txn)
}
