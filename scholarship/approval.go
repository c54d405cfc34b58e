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
	"fmt"
	"math"

	"github.com/blinklabs-io/scholarhub/database/models"
)

// ApprovalQuorum is the number of votes an application needs before it can
// be approved. Approval also requires strictly more votes for than against
const ApprovalQuorum = 3

// Approves reports whether a tally approves an application
func Approves(votesFor, votesAgainst uint64) bool {
	return votesFor+votesAgainst >= ApprovalQuorum && votesFor > votesAgainst
}

// ApplyVote returns the application with the vote counted and reports
// whether the vote approved it. The input is not modified
func ApplyVote(
	app models.Scholarship,
	voteFor bool,
) (models.Scholarship, bool, error) {
	if app.AppId == 0 {
		return app, false, ErrApplicationNotFound
	}
	if app.IsApproved {
		return app, false, fmt.Errorf("%w: %d", ErrAlreadyApproved, app.AppId)
	}
	if app.VotesFor == math.MaxUint64 || app.VotesAgainst == math.MaxUint64 {
		return app, false, fmt.Errorf("%w: vote tally", ErrCounterOverflow)
	}
	if voteFor {
		app.VotesFor++
	} else {
		app.VotesAgainst++
	}
	if Approves(app.VotesFor, app.VotesAgainst) {
		app.IsApproved = true
		return app, true, nil
	}
	return app, false, nil
}
