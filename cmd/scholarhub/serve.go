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

package main

import (
	"errors"
	"os"

	"github.com/blinklabs-io/scholarhub/internal/config"
	"github.com/blinklabs-io/scholarhub/internal/node"
	"github.com/spf13/cobra"
)

var errNoConfig = errors.New("no config found in context")

func serveRun(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errNoConfig
	}
	logger := commonRun(os.Stdout)
	return node.Run(cfg, logger)
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and metrics listeners",
		RunE:  serveRun,
	}
	return cmd
}
