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

package blob

import (
	"fmt"
	"time"

	"github.com/blinklabs-io/scholarhub/database/plugin"
	"github.com/blinklabs-io/scholarhub/database/types"
)

type BlobStore interface {
	plugin.Plugin

	Close() error
	NewTransaction(readWrite bool) types.Txn
	Get(txn types.Txn, key []byte) ([]byte, error)
	Set(txn types.Txn, key, val []byte) error
	// SetWithTTL stores a value that expires after ttl
	SetWithTTL(txn types.Txn, key, val []byte, ttl time.Duration) error
	// ExtendTTL pushes the expiry of key out to policy.ExtendTo if its
	// remaining lifetime is below policy.Threshold. Keys without an
	// expiry are left alone. It reports whether the key was rewritten
	ExtendTTL(txn types.Txn, key []byte, policy types.TTLPolicy) (bool, error)
	NewIterator(txn types.Txn, opts types.BlobIteratorOptions) types.BlobIterator

	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(timestamp int64, txn types.Txn) error
}

// New returns the started blob plugin selected by name
func New(pluginName string) (BlobStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeBlob, pluginName)
	if err != nil {
		return nil, err
	}
	blobStore, ok := p.(BlobStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement BlobStore interface",
			pluginName,
		)
	}
	return blobStore, nil
}
