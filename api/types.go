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
	"time"

	"github.com/blinklabs-io/scholarhub/database/models"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type SubmitApplicationRequest struct {
	// Applicant defaults to the authenticated caller
	Applicant       string `json:"applicant"`
	Title           string `json:"title"`
	Descrip         string `json:"descrip"`
	AmountRequested uint64 `json:"amount_requested"`
}

type SubmitApplicationResponse struct {
	AppId uint64 `json:"app_id"`
}

type VoteRequest struct {
	// VoteFor is required
	VoteFor *bool `json:"vote_for"`
	// Voter defaults to the authenticated caller
	Voter string `json:"voter"`
}

type RegisterBuildRequest struct {
	Builder     string `json:"builder"`
	RepoUrl     string `json:"repo_url"`
	Description string `json:"description"`
}

type BuildVerifiedResponse struct {
	BuildId  uint64 `json:"build_id"`
	Verified bool   `json:"verified"`
}

type ApplicationListResponse []models.Scholarship

type EventResponse struct {
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data,omitempty"`
	EventID   string    `json:"event_id"`
	Contract  string    `json:"contract"`
	Topic     string    `json:"topic"`
	ID        uint      `json:"id"`
	Timestamp uint64    `json:"timestamp"`
}
