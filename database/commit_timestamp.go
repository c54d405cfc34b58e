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
	"fmt"
)

type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	// Get value from metadata
	metadataTimestamp, metadataErr := d.Metadata().GetCommitTimestamp()
	if metadataErr != nil {
		return fmt.Errorf(
			"failed to get metadata timestamp from plugin: %w",
			metadataErr,
		)
	}
	// No timestamp in the database
	if metadataTimestamp <= 0 {
		return nil
	}
	// Get value from blob
	blobTimestamp, blobErr := d.Blob().GetCommitTimestamp()
	if blobErr != nil {
		return fmt.Errorf(
			"failed to get blob timestamp from plugin: %w",
			blobErr,
		)
	}
	// Compare values
	if blobTimestamp != metadataTimestamp {
		return CommitTimestampError{
			MetadataTimestamp: metadataTimestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
	return nil
}

func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	// Update metadata
	if err := d.Metadata().SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return err
	}
	// Update blob
	if err := d.Blob().SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return err
	}
	return nil
}

// RecoverCommitTimestamp realigns the metadata commit timestamp with the
// blob store after an interrupted commit. The blob store commits first, so
// its contract state is kept and the event log rows of the interrupted
// commit, which follow the last committed event ID, are lost
func (d *Database) RecoverCommitTimestamp() error {
	blobTimestamp, err := d.Blob().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("failed to get blob timestamp: %w", err)
	}
	lastEventID, err := d.Metadata().GetLastCommittedEventID()
	if err != nil {
		return fmt.Errorf("failed to get last committed event: %w", err)
	}
	txn := d.Metadata().NewTransaction(true)
	if err := d.Metadata().SetCommitTimestamp(blobTimestamp, txn); err != nil {
		_ = txn.Rollback()
		return fmt.Errorf("failed to set metadata timestamp: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata timestamp: %w", err)
	}
	d.logger.Warn(
		fmt.Sprintf(
			"recovered commit timestamp mismatch, metadata reset to %d",
			blobTimestamp,
		),
		"component", "database",
		"last_event_id", lastEventID,
	)
	return nil
}
