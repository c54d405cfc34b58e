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

package event

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	ContractScholarship = "scholarship"
	ContractBuild       = "build"

	ScholarshipSubmittedEventType   EventType = "scholarship.submitted"
	ScholarshipVoteEventType        EventType = "scholarship.vote"
	ScholarshipApprovedEventType    EventType = "scholarship.approved"
	ScholarshipDistributedEventType EventType = "scholarship.distributed"
	BuildRegisteredEventType        EventType = "build.registered"
	BuildVerifiedEventType          EventType = "build.verified"
)

type ScholarshipSubmittedEvent struct {
	cbor.StructAsArray
	Applicant       string `json:"applicant"`
	AppId           uint64 `json:"app_id"`
	AmountRequested uint64 `json:"amount_requested"`
}

type ScholarshipVoteEvent struct {
	cbor.StructAsArray
	Voter        string `json:"voter"`
	AppId        uint64 `json:"app_id"`
	VotesFor     uint64 `json:"votes_for"`
	VotesAgainst uint64 `json:"votes_against"`
	VoteFor      bool   `json:"vote_for"`
}

type ScholarshipApprovedEvent struct {
	cbor.StructAsArray
	AppId uint64 `json:"app_id"`
}

type ScholarshipDistributedEvent struct {
	cbor.StructAsArray
	AppId  uint64 `json:"app_id"`
	Amount uint64 `json:"amount"`
}

type BuildRegisteredEvent struct {
	cbor.StructAsArray
	Builder string `json:"builder"`
	RepoUrl string `json:"repo_url"`
	BuildId uint64 `json:"build_id"`
}

type BuildVerifiedEvent struct {
	cbor.StructAsArray
	BuildId uint64 `json:"build_id"`
}

// DecodeContractEvent decodes a stored contract event payload into the
// event data type for its topic
func DecodeContractEvent(eventType EventType, payload []byte) (any, error) {
	var dest any
	switch eventType {
	case ScholarshipSubmittedEventType:
		dest = &ScholarshipSubmittedEvent{}
	case ScholarshipVoteEventType:
		dest = &ScholarshipVoteEvent{}
	case ScholarshipApprovedEventType:
		dest = &ScholarshipApprovedEvent{}
	case ScholarshipDistributedEventType:
		dest = &ScholarshipDistributedEvent{}
	case BuildRegisteredEventType:
		dest = &BuildRegisteredEvent{}
	case BuildVerifiedEventType:
		dest = &BuildVerifiedEvent{}
	default:
		return nil, fmt.Errorf("unknown contract event type: %s", eventType)
	}
	if _, err := cbor.Decode(payload, dest); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", eventType, err)
	}
	return dest, nil
}
