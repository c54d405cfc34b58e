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

package types

import (
	"errors"
	"time"
)

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrMetadataStoreUnavailable is returned when metadata store cannot be accessed
var ErrMetadataStoreUnavailable = errors.New("metadata store unavailable")

// ErrReadOnlyTxn is returned when a write is attempted in a read-only transaction
var ErrReadOnlyTxn = errors.New("write in read-only transaction")

// BlobItem represents a value returned by an iterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
	// ExpiresAt returns the expiry of the item as a unix timestamp in
	// seconds, or 0 when the item never expires
	ExpiresAt() uint64
}

// BlobIterator provides key iteration over the blob store.
//
// Items returned by `Item()` must only be accessed while the transaction
// used to create the iterator is still active.
type BlobIterator interface {
	Rewind()
	Seek(prefix []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions configures blob iterator creation
type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
	// KeysOnly skips value prefetching
	KeysOnly bool
}

// Txn is a simple transaction handle for commit/rollback only.
// Database layer (Txn) coordinates metadata and blob operations separately.
type Txn interface {
	Commit() error
	Rollback() error
}

// TTLPolicy mirrors the host's lifetime extension call: keys whose
// remaining lifetime drops below Threshold are pushed out to ExtendTo.
// A zero ExtendTo disables expiry entirely.
type TTLPolicy struct {
	Threshold time.Duration
	ExtendTo  time.Duration
}

// Enabled reports whether keys written under this policy expire
func (p TTLPolicy) Enabled() bool {
	return p.ExtendTo > 0
}
