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

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/scholarhub/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed unexpectedly")
		}
		return evt
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := receive(t, subCh)
	v, ok := evt.Data.(int)
	require.True(t, ok, "event data was not of expected type, got %T", evt.Data)
	assert.Equal(t, 999, v)
	assert.Equal(t, testEvtType, evt.Type)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "x"))
	assert.Equal(t, "x", receive(t, sub1Ch).Data)
	assert.Equal(t, "x", receive(t, sub2Ch).Data)
}

func TestEventBusAllEvents(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, allCh := eb.Subscribe(event.AllEventsType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish("first.event", event.NewEvent("first.event", 1))
	eb.Publish("second.event", event.NewEvent("second.event", 2))
	assert.Equal(t, event.EventType("first.event"), receive(t, allCh).Type)
	assert.Equal(t, event.EventType("second.event"), receive(t, allCh).Type)
	select {
	case <-otherCh:
		t.Fatalf("received event for a different type")
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	select {
	case _, ok := <-subCh:
		if ok {
			t.Fatalf("received unexpected event")
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("subscriber channel was not closed after Unsubscribe")
	}
}

func TestEventBusFullSubscriberDoesNotBlock(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(prometheus.NewRegistry(), nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	done := make(chan struct{})
	go func() {
		for i := range event.EventQueueSize + 5 {
			eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
	assert.Len(t, subCh, event.EventQueueSize)
	// The subscriber is still registered after dropping events
	for range event.EventQueueSize {
		<-subCh
	}
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "later"))
	assert.Equal(t, "later", receive(t, subCh).Data)
}

func TestEventBusSubscribeFunc(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	var count atomic.Int32
	eb.SubscribeFunc(testEvtType, func(event.Event) {
		count.Add(1)
	})
	for range 3 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, nil))
	}
	require.Eventually(
		t,
		func() bool { return count.Load() == 3 },
		time.Second,
		10*time.Millisecond,
	)
	// Stop closes the subscriber so the handler goroutine exits
	eb.Stop()
}

func TestEventBusPublishAfterStop(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 7))
	assert.Equal(t, 7, receive(t, subCh).Data)
	eb.Stop()
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 8))
	_, ok := <-subCh
	assert.False(t, ok)
	// Stop is safe to repeat
	eb.Stop()
}

type failingSubscriber struct {
	closed atomic.Bool
}

func (f *failingSubscriber) Deliver(event.Event) error {
	panic("boom")
}

func (f *failingSubscriber) Close() {
	f.closed.Store(true)
}

func TestEventBusFailingSubscriberRemoved(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sub := &failingSubscriber{}
	eb.RegisterSubscriber("test.fail", sub)
	eb.Publish("test.fail", event.NewEvent("test.fail", "x"))
	assert.True(t, sub.closed.Load())
}

func TestDecodeContractEvent(t *testing.T) {
	payload, err := cbor.Encode(&event.ScholarshipVoteEvent{
		AppId:    3,
		Voter:    "carol",
		VoteFor:  true,
		VotesFor: 2,
	})
	require.NoError(t, err)
	data, err := event.DecodeContractEvent(
		event.ScholarshipVoteEventType,
		payload,
	)
	require.NoError(t, err)
	vote, ok := data.(*event.ScholarshipVoteEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(3), vote.AppId)
	assert.Equal(t, "carol", vote.Voter)
	assert.True(t, vote.VoteFor)

	_, err = event.DecodeContractEvent("unknown.event", payload)
	assert.Error(t, err)
}
