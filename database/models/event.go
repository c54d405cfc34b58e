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

package models

import "time"

// ContractEvent is a persisted copy of an event emitted by a contract call
type ContractEvent struct {
	CreatedAt time.Time
	EventID   string `gorm:"size:36;uniqueIndex;not null"`
	Contract  string `gorm:"index;not null"`
	Topic     string `gorm:"index;not null"`
	Payload   []byte
	ID        uint `gorm:"primarykey"`
	// Ledger timestamp of the call that emitted the event
	Timestamp uint64
}

func (ContractEvent) TableName() string {
	return "contract_event"
}
