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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/scholarhub"
	"github.com/blinklabs-io/scholarhub/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewNode builds a node from the loaded config. Extra options are applied
// after the ones derived from cfg
func NewNode(
	cfg *config.Config,
	logger *slog.Logger,
	opts ...scholarhub.ConfigOptionFunc,
) (*scholarhub.Node, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	ttlPolicy, err := cfg.TTLPolicy()
	if err != nil {
		return nil, err
	}
	nodeOpts := []scholarhub.ConfigOptionFunc{
		scholarhub.WithLogger(logger),
		scholarhub.WithDatabasePath(cfg.DatabasePath),
		scholarhub.WithBlobPlugin(cfg.BlobPlugin),
		scholarhub.WithMetadataPlugin(cfg.MetadataPlugin),
		scholarhub.WithJwtSecret(cfg.JwtSecret),
		scholarhub.WithTTLPolicy(ttlPolicy),
		scholarhub.WithShutdownTimeout(shutdownTimeout),
		scholarhub.WithTracing(cfg.Tracing),
		scholarhub.WithTracingStdout(cfg.TracingStdout),
	}
	return scholarhub.New(scholarhub.NewConfig(append(nodeOpts, opts...)...))
}

// apiListenAddress returns the API listen address, or an empty string when
// the API is disabled
func apiListenAddress(cfg *config.Config) string {
	if cfg.ApiPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort)
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	// Keep the token secret out of the logs
	logCfg := *cfg
	if logCfg.JwtSecret != "" {
		logCfg.JwtSecret = "<redacted>"
	}
	logger.Debug(fmt.Sprintf("config: %+v", logCfg), "component", "node")

	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	n, err := NewNode(
		cfg,
		logger,
		scholarhub.WithApiListenAddress(apiListenAddress(cfg)),
		// Enable metrics with default prometheus registry
		scholarhub.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		http.Handle("/metrics", promhttp.Handler())
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
				os.Exit(1)
			}
		}()
	}
	shutdownMetrics := func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- n.Run(signalCtx)
	}()

	err = <-errChan
	if err != nil {
		logger.Error("node error", "error", err)
	} else {
		logger.Info("signal received, initiating graceful shutdown")
	}
	shutdownMetrics()
	if stopErr := n.Stop(); stopErr != nil {
		logger.Error("shutdown errors occurred", "error", stopErr)
		return errors.Join(err, stopErr)
	}
	if err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
