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
	"fmt"
	"time"

	"github.com/blinklabs-io/scholarhub/host"
	"github.com/blinklabs-io/scholarhub/internal/config"
	"github.com/spf13/cobra"
)

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	cmd.AddCommand(tokenIssueCommand())
	return cmd
}

func tokenIssueCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue <identity>",
		Short: "Issue a bearer token for an identity using the configured JWT secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			if cfg.JwtSecret == "" {
				return errors.New("no JWT secret configured")
			}
			tokens, err := host.NewTokenVerifier(cfg.JwtSecret)
			if err != nil {
				return err
			}
			token, err := tokens.IssueToken(host.Identity(args[0]), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
