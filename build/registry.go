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

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrBuildNotFound = errors.New("build not found")

// Registry records submitted builds and whether they were verified.
// Registering and verifying are open to any caller
type Registry struct {
	host         *host.Host
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *registryMetrics
}

type RegistryOptionFunc func(*Registry)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) RegistryOptionFunc {
	return func(r *Registry) {
		r.promRegistry = registry
	}
}

func NewRegistry(h *host.Host, opts ...RegistryOptionFunc) *Registry {
	r := &Registry{host: h}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.promRegistry != nil {
		r.initMetrics()
	}
	return r
}

func getBuild(env *host.Env, buildId uint64) (*models.BuildRecord, error) {
	record, err := env.DB().GetBuild(buildId, env.Txn())
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrBuildNotFound, buildId)
		}
		return nil, err
	}
	return record, nil
}

// RegisterBuild stores an unverified build record, replacing any record
// with the same id
func (r *Registry) RegisterBuild(
	ctx context.Context,
	buildId uint64,
	builder string,
	repoUrl string,
	description string,
) error {
	err := r.host.Invoke(
		ctx,
		event.ContractBuild,
		"register_build",
		func(env *host.Env) error {
			record := &models.BuildRecord{
				BuildId:     buildId,
				Builder:     builder,
				RepoUrl:     repoUrl,
				Description: description,
				SubmittedAt: env.Now(),
			}
			if err := env.DB().SetBuild(record, env.Txn()); err != nil {
				return err
			}
			return env.Emit(
				event.BuildRegisteredEventType,
				&event.BuildRegisteredEvent{
					BuildId: buildId,
					Builder: builder,
					RepoUrl: repoUrl,
				},
			)
		},
	)
	if err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.registrations.Inc()
	}
	r.logger.Info(
		fmt.Sprintf("build %d registered by %s", buildId, builder),
		"component", "build",
	)
	return nil
}

// VerifyBuild marks a registered build as verified. Verifying a verified
// build succeeds
func (r *Registry) VerifyBuild(ctx context.Context, buildId uint64) error {
	err := r.host.Invoke(
		ctx,
		event.ContractBuild,
		"verify_build",
		func(env *host.Env) error {
			record, err := getBuild(env, buildId)
			if err != nil {
				return err
			}
			record.Verified = true
			if err := env.DB().SetBuild(record, env.Txn()); err != nil {
				return err
			}
			return env.Emit(
				event.BuildVerifiedEventType,
				&event.BuildVerifiedEvent{BuildId: buildId},
			)
		},
	)
	r.recordVerification(err)
	if err != nil {
		return err
	}
	r.logger.Info(
		fmt.Sprintf("build %d verified", buildId),
		"component", "build",
	)
	return nil
}

// IsBuildVerified reports whether the build is registered and verified
func (r *Registry) IsBuildVerified(
	ctx context.Context,
	buildId uint64,
) (bool, error) {
	var verified bool
	err := r.host.View(
		ctx,
		event.ContractBuild,
		"is_build_verified",
		func(env *host.Env) error {
			record, err := getBuild(env, buildId)
			if err != nil {
				if errors.Is(err, ErrBuildNotFound) {
					return nil
				}
				return err
			}
			verified = record.Verified
			return nil
		},
	)
	return verified, err
}

// GetBuild returns the build record, or ErrBuildNotFound
func (r *Registry) GetBuild(
	ctx context.Context,
	buildId uint64,
) (*models.BuildRecord, error) {
	var record *models.BuildRecord
	err := r.host.View(
		ctx,
		event.ContractBuild,
		"get_build",
		func(env *host.Env) error {
			var err error
			record, err = getBuild(env, buildId)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}
