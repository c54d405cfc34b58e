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
	"errors"

	"github.com/blinklabs-io/scholarhub"
	"github.com/spf13/cobra"
)

func buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Manage build records in the local database",
	}
	cmd.AddCommand(
		buildRegisterCommand(),
		buildVerifyCommand(),
		buildGetCommand(),
		buildVerifiedCommand(),
	)
	return cmd
}

func buildRegisterCommand() *cobra.Command {
	var builder, repoUrl, description string
	cmd := &cobra.Command{
		Use:   "register <build-id>",
		Short: "Register (or replace) a build record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildId, err := parseID(args[0])
			if err != nil {
				return err
			}
			if builder == "" {
				return errors.New("--builder is required")
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				return n.BuildRegistry().RegisterBuild(
					ctx,
					buildId,
					builder,
					repoUrl,
					description,
				)
			})
		},
	}
	cmd.Flags().StringVar(&builder, "builder", "", "builder identity")
	cmd.Flags().StringVar(&repoUrl, "repo-url", "", "source repository URL")
	cmd.Flags().StringVar(&description, "description", "", "build description")
	return cmd
}

func buildVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <build-id>",
		Short: "Mark a build as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildId, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				return n.BuildRegistry().VerifyBuild(ctx, buildId)
			})
		},
	}
}

func buildGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <build-id>",
		Short: "Show a build record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildId, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				record, err := n.BuildRegistry().GetBuild(ctx, buildId)
				if err != nil {
					return err
				}
				return printJSON(cmd, record)
			})
		},
	}
}

func buildVerifiedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verified <build-id>",
		Short: "Report whether a build is verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildId, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				verified, err := n.BuildRegistry().IsBuildVerified(ctx, buildId)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{
					"build_id": buildId,
					"verified": verified,
				})
			})
		},
	}
}
