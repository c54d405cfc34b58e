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

package scholarship

import (
	"errors"

	"github.com/blinklabs-io/scholarhub/host"
)

var (
	// ErrUnauthorized is returned when the caller doesn't control the
	// applicant or voter identity
	ErrUnauthorized = host.ErrUnauthorized

	ErrAlreadyVoted        = errors.New("already voted")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyApproved     = errors.New("application already approved")
	ErrNotApproved         = errors.New("application not approved")
	ErrAlreadyDistributed  = errors.New("scholarship already distributed")
	ErrCounterOverflow     = errors.New("counter overflow")
)
