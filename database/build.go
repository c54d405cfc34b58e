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
	"github.com/blinklabs-io/scholarhub/database/types"
)

// GetBuild returns the build record with the given ID, or ErrRecordNotFound
func (d *Database) GetBuild(buildId uint64, txn *Txn) (*models.BuildRecord, error) {
	var ret models.BuildRecord
	if err := d.getRecord(types.BuildKey(buildId), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// SetBuild stores a build record under its BuildId, replacing any
// existing record
func (d *Database) SetBuild(build *models.BuildRecord, txn *Txn) error {
	return d.setRecord(types.BuildKey(build.BuildId), build, txn)
}
