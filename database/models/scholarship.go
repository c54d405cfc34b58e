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

import "github.com/blinklabs-io/gouroboros/cbor"

// Scholarship is the stored form of a scholarship application
type Scholarship struct {
	cbor.StructAsArray
	AppId           uint64 `json:"app_id"`
	Applicant       string `json:"applicant"`
	Title           string `json:"title"`
	Descrip         string `json:"descrip"`
	AmountRequested uint64 `json:"amount_requested"`
	VotesFor        uint64 `json:"votes_for"`
	VotesAgainst    uint64 `json:"votes_against"`
	IsApproved      bool   `json:"is_approved"`
	IsDistributed   bool   `json:"is_distributed"`
	Timestamp       uint64 `json:"timestamp"`
}

// DaoStats holds the aggregate DAO counters
type DaoStats struct {
	cbor.StructAsArray
	TotalApplications       uint64 `json:"total_applications"`
	ApprovedApplications    uint64 `json:"approved_applications"`
	DistributedScholarships uint64 `json:"distributed_scholarships"`
	TotalFundsDistributed   uint64 `json:"total_funds_distributed"`
}

// Vote marks that a voter has voted on an application. Only its
// presence matters
type Vote struct {
	cbor.StructAsArray
	VoteFor bool
	CastAt  uint64
}

// Genesis records when contract state was first initialized
type Genesis struct {
	cbor.StructAsArray
	InitializedAt uint64
}
