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

package api

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultPaginationCount = 100
	MaxPaginationCount     = 1000
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams contains parsed pagination query values
type PaginationParams struct {
	// From is the first application id to return
	From uint64
	// After is the last event id already seen
	After uint64
	Count int
}

// ParsePagination parses the from, after and count (or limit) query
// parameters and applies defaults and bounds clamping
func ParsePagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		From:  1,
		Count: DefaultPaginationCount,
	}
	query := r.URL.Query()
	countParam := query.Get("count")
	if countParam == "" {
		countParam = query.Get("limit")
	}
	if countParam != "" {
		count, err := strconv.Atoi(countParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Count = count
	}
	if fromParam := query.Get("from"); fromParam != "" {
		from, err := strconv.ParseUint(fromParam, 10, 64)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.From = from
	}
	if afterParam := query.Get("after"); afterParam != "" {
		after, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.After = after
	}
	if params.Count < 1 {
		params.Count = DefaultPaginationCount
	}
	params.Count = min(params.Count, MaxPaginationCount)
	if params.From < 1 {
		params.From = 1
	}
	return params, nil
}
