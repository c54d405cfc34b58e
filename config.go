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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	clock            host.Clock
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	apiListenAddress string
	jwtSecret        string
	ttlPolicy        types.TTLPolicy
	shutdownTimeout  time.Duration
	tracing          bool
	tracingStdout    bool
}

func (n *Node) configValidate() error {
	if n.config.ttlPolicy.Threshold < 0 || n.config.ttlPolicy.ExtendTo < 0 {
		return errors.New("TTL durations must not be negative")
	}
	if n.config.ttlPolicy.Enabled() &&
		n.config.ttlPolicy.Threshold > n.config.ttlPolicy.ExtendTo {
		return fmt.Errorf(
			"TTL threshold (%s) must not exceed extend-to (%s)",
			n.config.ttlPolicy.Threshold,
			n.config.ttlPolicy.ExtendTo,
		)
	}
	if n.config.shutdownTimeout < 0 {
		return errors.New("shutdown timeout must not be negative")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new scholarhub config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithApiListenAddress specifies the address for the REST API listener. An
// empty address disables the API
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithJwtSecret specifies the secret used to verify API bearer tokens
func WithJwtSecret(secret string) ConfigOptionFunc {
	return func(c *Config) {
		c.jwtSecret = secret
	}
}

// WithTTLPolicy specifies the lifetime extension applied to contract state
func WithTTLPolicy(policy types.TTLPolicy) ConfigOptionFunc {
	return func(c *Config) {
		c.ttlPolicy = policy
	}
}

// WithClock specifies the ledger time source. The default is the system clock
func WithClock(clock host.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithTracing enables a span per contract invocation. Spans are exported over OTLP HTTP, configured by the
// OTEL_EXPORTER_OTLP_* env vars of [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout exports spans to stdout instead of OTLP. It has no effect unless tracing is enabled
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}
