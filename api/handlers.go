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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/scholarhub/build"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/blinklabs-io/scholarhub/internal/version"
	"github.com/blinklabs-io/scholarhub/scholarship"
)

const maxRequestBodyBytes = 1 << 20

var errInvalidID = errors.New("id must be an unsigned integer")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "Bad Request", message)
}

// writeContractError maps a contract error to its HTTP status
func (s *Server) writeContractError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, host.ErrUnauthorized),
		errors.Is(err, host.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, scholarship.ErrApplicationNotFound),
		errors.Is(err, build.ErrBuildNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scholarship.ErrAlreadyVoted),
		errors.Is(err, scholarship.ErrAlreadyApproved),
		errors.Is(err, scholarship.ErrNotApproved),
		errors.Is(err, scholarship.ErrAlreadyDistributed),
		errors.Is(err, scholarship.ErrCounterOverflow):
		status = http.StatusConflict
	default:
		s.logger.Error("request failed", "error", err)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected response was received from the backend.",
		)
		return
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

// authenticate resolves a bearer token into the caller identity on the
// request context. Requests without a token carry no caller
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			writeError(
				w,
				http.StatusUnauthorized,
				"Unauthorized",
				"expected a bearer token",
			)
			return
		}
		caller, err := s.tokens.Verify(strings.TrimSpace(tokenStr))
		if err != nil {
			s.writeContractError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(host.WithCaller(r.Context(), caller)))
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}

// identityOrCaller returns the identity named in the request, falling
// back to the authenticated caller
func identityOrCaller(r *http.Request, named string) host.Identity {
	if named != "" {
		return host.Identity(named)
	}
	caller, _ := host.CallerFromContext(r.Context())
	return caller
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "scholarhub",
		Version: version.GetVersionString(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (s *Server) handleSubmitApplication(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req SubmitApplicationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	applicant := identityOrCaller(r, req.Applicant)
	if applicant == "" {
		writeBadRequest(w, "applicant is required")
		return
	}
	if req.Title == "" {
		writeBadRequest(w, "title is required")
		return
	}
	appId, err := s.backend.SubmitApplication(
		r.Context(),
		applicant,
		req.Title,
		req.Descrip,
		req.AmountRequested,
	)
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SubmitApplicationResponse{AppId: appId})
}

func (s *Server) handleListApplications(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	apps, err := s.backend.ListApplications(
		r.Context(),
		params.From,
		params.Count,
	)
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplicationListResponse(apps))
}

func (s *Server) handleGetApplication(
	w http.ResponseWriter,
	r *http.Request,
) {
	appId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	app, err := s.backend.GetApplication(r.Context(), appId)
	if errors.Is(err, scholarship.ErrApplicationNotFound) && app != nil {
		// Missing applications answer with the placeholder record
		writeJSON(w, http.StatusNotFound, app)
		return
	}
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	appId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.VoteFor == nil {
		writeBadRequest(w, "vote_for is required")
		return
	}
	voter := identityOrCaller(r, req.Voter)
	if voter == "" {
		writeBadRequest(w, "voter is required")
		return
	}
	err = s.backend.VoteOnApplication(r.Context(), voter, appId, *req.VoteFor)
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	appId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.backend.DistributeScholarship(r.Context(), appId); err != nil {
		s.writeContractError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.GetDaoStats(r.Context())
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRegisterBuild(
	w http.ResponseWriter,
	r *http.Request,
) {
	buildId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req RegisterBuildRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Builder == "" {
		writeBadRequest(w, "builder is required")
		return
	}
	err = s.backend.RegisterBuild(
		r.Context(),
		buildId,
		req.Builder,
		req.RepoUrl,
		req.Description,
	)
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyBuild(w http.ResponseWriter, r *http.Request) {
	buildId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.backend.VerifyBuild(r.Context(), buildId); err != nil {
		s.writeContractError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	buildId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	record, err := s.backend.GetBuild(r.Context(), buildId)
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleBuildVerified(
	w http.ResponseWriter,
	r *http.Request,
) {
	buildId, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	verified, err := s.backend.IsBuildVerified(r.Context(), buildId)
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildVerifiedResponse{
		BuildId:  buildId,
		Verified: verified,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	query := r.URL.Query()
	events, err := s.backend.GetEvents(r.Context(), metadata.EventQuery{
		Topic:    query.Get("topic"),
		Contract: query.Get("contract"),
		AfterID:  uint(params.After),
		Limit:    params.Count,
	})
	if err != nil {
		s.writeContractError(w, err)
		return
	}
	ret := make([]EventResponse, 0, len(events))
	for _, evt := range events {
		item := EventResponse{
			ID:        evt.ID,
			EventID:   evt.EventID,
			Contract:  evt.Contract,
			Topic:     evt.Topic,
			Timestamp: evt.Timestamp,
			CreatedAt: evt.CreatedAt,
		}
		data, err := event.DecodeContractEvent(
			event.EventType(evt.Topic),
			evt.Payload,
		)
		if err != nil {
			s.logger.Warn(
				"failed to decode event payload",
				"event_id", evt.EventID,
				"error", err,
			)
		} else {
			item.Data = data
		}
		ret = append(ret, item)
	}
	writeJSON(w, http.StatusOK, ret)
}
