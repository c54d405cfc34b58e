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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/blinklabs-io/scholarhub"
	"github.com/blinklabs-io/scholarhub/internal/config"
	"github.com/blinklabs-io/scholarhub/internal/node"
	"github.com/spf13/cobra"
)

// withNode opens the local database, runs fn against the loaded contracts
// and closes the database again. The database must not be in use by a
// running server
func withNode(
	cmd *cobra.Command,
	fn func(ctx context.Context, n *scholarhub.Node) error,
) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errNoConfig
	}
	// Logs go to stderr so command output stays machine readable
	logger := commonRun(os.Stderr)
	n, err := node.NewNode(cfg, logger)
	if err != nil {
		return err
	}
	if err := n.Start(cmd.Context()); err != nil {
		return errors.Join(err, n.Stop())
	}
	err = fn(cmd.Context(), n)
	return errors.Join(err, n.Stop())
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be an unsigned integer", arg)
	}
	return id, nil
}
