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
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/spf13/cobra"
)

func appCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Manage scholarship applications in the local database",
	}
	cmd.AddCommand(
		appSubmitCommand(),
		appVoteCommand(),
		appDistributeCommand(),
		appGetCommand(),
		appListCommand(),
		appStatsCommand(),
	)
	return cmd
}

func appSubmitCommand() *cobra.Command {
	var as, title, descrip string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a scholarship application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if as == "" {
				return errors.New("--as is required")
			}
			if title == "" {
				return errors.New("--title is required")
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				applicant := host.Identity(as)
				appId, err := n.Dao().SubmitApplication(
					host.WithCaller(ctx, applicant),
					applicant,
					title,
					descrip,
					amount,
				)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]uint64{"app_id": appId})
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "applicant identity")
	cmd.Flags().StringVar(&title, "title", "", "application title")
	cmd.Flags().StringVar(&descrip, "descrip", "", "application description")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount requested")
	return cmd
}

func appVoteCommand() *cobra.Command {
	var as string
	var against bool
	cmd := &cobra.Command{
		Use:   "vote <app-id>",
		Short: "Vote on an application (for, unless --against is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appId, err := parseID(args[0])
			if err != nil {
				return err
			}
			if as == "" {
				return errors.New("--as is required")
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				voter := host.Identity(as)
				return n.Dao().VoteOnApplication(
					host.WithCaller(ctx, voter),
					voter,
					appId,
					!against,
				)
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "voter identity")
	cmd.Flags().BoolVar(&against, "against", false, "vote against the application")
	return cmd
}

func appDistributeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "distribute <app-id>",
		Short: "Mark an approved application as distributed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appId, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				return n.Dao().DistributeScholarship(ctx, appId)
			})
		},
	}
}

func appGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <app-id>",
		Short: "Show an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appId, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				app, err := n.Dao().GetApplication(ctx, appId)
				if err != nil {
					return err
				}
				return printJSON(cmd, app)
			})
		},
	}
}

func appListCommand() *cobra.Command {
	var from uint64
	var count int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				apps, err := n.Dao().ListApplications(ctx, from, count)
				if err != nil {
					return err
				}
				return printJSON(cmd, apps)
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 1, "first application id")
	cmd.Flags().IntVar(&count, "count", 100, "maximum number of applications")
	return cmd
}

func appStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show DAO totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withNode(cmd, func(ctx context.Context, n *scholarhub.Node) error {
				stats, err := n.Dao().GetDaoStats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}
}
