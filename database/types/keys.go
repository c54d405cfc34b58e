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
	"encoding/binary"
	"slices"
)

// All contract instance keys share the "s" prefix so that lifetime
// extension can walk the whole instance with a single iterator
const (
	InstanceKeyPrefix        = "s"
	ApplicationKeyPrefix     = "sa"
	VoteKeyPrefix            = "sv"
	ApplicationCountKey      = "sc"
	DaoStatsKey              = "ss"
	BuildKeyPrefix           = "sb"
	GenesisKey               = "sg"
	CommitTimestampKey       = "metadata_commit_timestamp"
	voteKeyIdentitySeparator = 0x00
)

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func ApplicationKey(appId uint64) []byte {
	return slices.Concat(
		[]byte(ApplicationKeyPrefix),
		Uint64ToBytes(appId),
	)
}

func VoteKey(appId uint64, voter string) []byte {
	return slices.Concat(
		[]byte(VoteKeyPrefix),
		Uint64ToBytes(appId),
		[]byte{voteKeyIdentitySeparator},
		[]byte(voter),
	)
}

func BuildKey(buildId uint64) []byte {
	return slices.Concat(
		[]byte(BuildKeyPrefix),
		Uint64ToBytes(buildId),
	)
}
