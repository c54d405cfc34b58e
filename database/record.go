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

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/scholarhub/database/types"
)

// ErrRecordNotFound is returned when a contract state record doesn't exist
var ErrRecordNotFound = errors.New("record not found")

// readTxn returns txn, or a new read-only transaction and a release func
// when txn is nil
func (d *Database) readTxn(txn *Txn) (*Txn, func()) {
	if txn != nil {
		return txn, func() {}
	}
	txn = d.Transaction(false)
	return txn, txn.Release
}

// getRecord decodes the CBOR value stored at key into dest
func (d *Database) getRecord(key []byte, dest any, txn *Txn) error {
	txn, release := d.readTxn(txn)
	defer release()
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	val, err := d.Blob().Get(txn.Blob(), key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return ErrRecordNotFound
		}
		return err
	}
	if _, err := cbor.Decode(val, dest); err != nil {
		return fmt.Errorf("decode record %x: %w", key, err)
	}
	return nil
}

// hasRecord reports whether a value is stored at key
func (d *Database) hasRecord(key []byte, txn *Txn) (bool, error) {
	txn, release := d.readTxn(txn)
	defer release()
	if txn.Blob() == nil {
		return false, types.ErrBlobStoreUnavailable
	}
	_, err := d.Blob().Get(txn.Blob(), key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// setRecord stores the CBOR encoding of val at key. Writes need a
// read-write transaction, and entries get the policy lifetime when TTLs
// are enabled
func (d *Database) setRecord(key []byte, val any, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if !txn.ReadWrite() {
		return types.ErrReadOnlyTxn
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	data, err := cbor.Encode(val)
	if err != nil {
		return fmt.Errorf("encode record %x: %w", key, err)
	}
	policy := d.TTLPolicy()
	if policy.Enabled() {
		return d.Blob().SetWithTTL(txn.Blob(), key, data, policy.ExtendTo)
	}
	return d.Blob().Set(txn.Blob(), key, data)
}
