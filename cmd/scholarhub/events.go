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

	"github.com/blinklabs-io/scholarhub"
	"github.com/blinklabs-io/scholarhub/database/plugin/metadata"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/spf13/cobra"
)

type eventOutput struct {
	Data     any    `json:"data,omitempty"`
	EventID  string `json:"event_id"`
	Contract string `json:"contract"`
	Topic    string `json:"topic"`
	ID       uint   `json:"id"`
	// Timestamp is the ledger time of the invocation that emitted the event
	Timestamp uint64 `json:"timestamp"`
}

func eventsCommand() *cobra.Command {
	var query metadata.EventQuery
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the persisted contract event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withNode(cmd, func(_ context.Context, n *scholarhub.Node) error {
				events, err := n.Database().GetEvents(query, nil)
				if err != nil {
					return err
				}
				ret := make([]eventOutput, 0, len(events))
				for _, evt := range events {
					item := eventOutput{
						ID:        evt.ID,
						EventID:   evt.EventID,
						Contract:  evt.Contract,
						Topic:     evt.Topic,
						Timestamp: evt.Timestamp,
					}
					data, err := event.DecodeContractEvent(
						event.EventType(evt.Topic),
						evt.Payload,
					)
					if err == nil {
						item.Data = data
					}
					ret = append(ret, item)
				}
				return printJSON(cmd, ret)
			})
		},
	}
	cmd.Flags().StringVar(&query.Topic, "topic", "", "only show events with this topic")
	cmd.Flags().StringVar(&query.Contract, "contract", "", "only show events from this contract")
	cmd.Flags().UintVar(&query.AfterID, "after", 0, "only show events after this event id")
	cmd.Flags().IntVar(&query.Limit, "count", 100, "maximum number of events")
	return cmd
}
