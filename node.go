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

package scholarhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/scholarhub/api"
	"github.com/blinklabs-io/scholarhub/build"
	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/blinklabs-io/scholarhub/scholarship"
	"go.opentelemetry.io/otel/trace"
)

const defaultShutdownTimeout = 30 * time.Second

// Node wires the contract state database, the contracts and the API
type Node struct {
	eventBus       *event.EventBus
	db             *database.Database
	host           *host.Host
	dao            *scholarship.Dao
	buildRegistry  *build.Registry
	api            *api.Server
	tokens         *host.TokenVerifier
	tracerProvider trace.TracerProvider
	shutdownFuncs  []func(context.Context) error
	config         Config
	done           chan struct{}
	startOnce      sync.Once
	startErr       error
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.jwtSecret != "" {
		tokens, err := host.NewTokenVerifier(cfg.jwtSecret)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		n.tokens = tokens
	}
	return n, nil
}

// Start opens the database and loads the contracts without starting the
// API listener. It is safe to call more than once
func (n *Node) Start(ctx context.Context) error {
	n.startOnce.Do(func() {
		n.startErr = n.start(ctx)
	})
	return n.startErr
}

func (n *Node) start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		TTLPolicy:      n.config.ttlPolicy,
	})
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error", err,
			"component", "node",
		)
		if err := n.db.RecoverCommitTimestamp(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Load contract host
	hostOpts := []host.HostOptionFunc{
		host.WithDatabase(n.db),
		host.WithEventBus(n.eventBus),
		host.WithLogger(n.config.logger),
		host.WithPromRegistry(n.config.promRegistry),
	}
	if n.config.clock != nil {
		hostOpts = append(hostOpts, host.WithClock(n.config.clock))
	}
	if n.tracerProvider != nil {
		hostOpts = append(hostOpts, host.WithTracerProvider(n.tracerProvider))
	}
	n.host, err = host.New(hostOpts...)
	if err != nil {
		return fmt.Errorf("failed to load contract host: %w", err)
	}
	n.eventBus.SubscribeFunc(event.AllEventsType, n.logContractEvent)
	// Load contracts
	n.dao = scholarship.New(
		n.host,
		scholarship.WithLogger(n.config.logger),
		scholarship.WithPromRegistry(n.config.promRegistry),
	)
	if err := n.dao.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize scholarship DAO: %w", err)
	}
	n.buildRegistry = build.NewRegistry(
		n.host,
		build.WithLogger(n.config.logger),
		build.WithPromRegistry(n.config.promRegistry),
	)
	return nil
}

func (n *Node) logContractEvent(evt event.Event) {
	n.config.logger.Info(
		"contract event committed",
		"component", "node",
		"type", evt.Type,
		"data", evt.Data,
	)
}

// Run starts the node and the API listener, then blocks until the node is
// stopped or ctx is cancelled
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	if n.config.apiListenAddress != "" {
		if n.tokens == nil {
			n.config.logger.Warn(
				"no JWT secret configured, API calls that require a caller identity will be rejected",
				"component", "node",
			)
		}
		n.api = api.New(
			api.Config{
				ListenAddress: n.config.apiListenAddress,
				ReuseAddress:  true,
			},
			api.NewBackend(n.dao, n.buildRegistry, n.db),
			n.tokens,
			n.config.logger,
		)
		if err := n.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API: %w", err)
		}
	}
	// Wait for shutdown
	select {
	case <-n.done:
	case <-ctx.Done():
	}
	return nil
}

// Dao returns the scholarship DAO. It is nil until the node is started
func (n *Node) Dao() *scholarship.Dao {
	return n.dao
}

// BuildRegistry returns the build registry. It is nil until the node is started
func (n *Node) BuildRegistry() *build.Registry {
	return n.buildRegistry
}

// Database returns the contract state database. It is nil until the node is started
func (n *Node) Database() *database.Database {
	return n.db
}

// EventBus returns the bus that committed contract events are published on
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// TokenVerifier returns the API bearer token verifier, or nil when no JWT
// secret is configured
func (n *Node) TokenVerifier() *host.TokenVerifier {
	return n.tokens
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := defaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Stop accepting new calls
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Drain subscribers before closing the database
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
