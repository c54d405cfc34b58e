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

package event

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize = 20

	// AllEventsType subscribes to every published event type
	AllEventsType EventType = "*"
)

var ErrSubscriberFull = errors.New("subscriber queue full")

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. Close must be safe to call
// more than once
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// channelSubscriber delivers events to a buffered channel. Delivery never
// blocks: a full buffer drops the event and reports ErrSubscriberFull
type channelSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{
		ch: make(chan Event, buffer),
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
		return nil
	default:
		return ErrSubscriberFull
	}
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// EventBus fans events out to subscribers by event type
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	metrics     *eventMetrics
	logger      *slog.Logger
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	stopOnce    sync.Once
	stopMu      sync.RWMutex
	stopped     bool
}

// NewEventBus creates a new EventBus
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		logger:      logger,
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return "in-memory"
	}
	return "remote"
}

// RegisterSubscriber adds a subscriber for an event type and returns its id
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(
			string(eventType),
			subscriberKind(sub),
		).Inc()
	}
	return subId
}

// Subscribe returns a channel that receives events of the given type. Use
// AllEventsType to receive every event
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	chSub := newChannelSubscriber(EventQueueSize)
	subId := e.RegisterSubscriber(eventType, chSub)
	return subId, chSub.ch
}

// SubscribeFunc calls handlerFunc for each event of the given type from a
// dedicated goroutine, which exits when the subscription ends
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// Unsubscribe removes a subscriber and closes it
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	sub, ok := e.subscribers[eventType][subId]
	if ok {
		delete(e.subscribers[eventType], subId)
		if len(e.subscribers[eventType]) == 0 {
			delete(e.subscribers, eventType)
		}
		if e.metrics != nil {
			e.metrics.subscribers.WithLabelValues(
				string(eventType),
				subscriberKind(sub),
			).Dec()
		}
	}
	e.mu.Unlock()
	if ok {
		sub.Close()
	}
}

type subEntry struct {
	sub       Subscriber
	eventType EventType
	id        EventSubscriberId
}

func (e *EventBus) subscribersFor(eventType EventType) []subEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var ret []subEntry
	for _, t := range []EventType{eventType, AllEventsType} {
		for id, sub := range e.subscribers[t] {
			ret = append(ret, subEntry{sub: sub, eventType: t, id: id})
		}
		if eventType == AllEventsType {
			break
		}
	}
	return ret
}

// Publish delivers an event to all subscribers of its type and to
// AllEventsType subscribers. A subscriber whose queue is full misses the
// event. A subscriber that fails in any other way is removed
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.stopMu.RLock()
	stopped := e.stopped
	e.stopMu.RUnlock()
	if stopped {
		return
	}
	for _, entry := range e.subscribersFor(eventType) {
		err := deliver(entry.sub, evt)
		if err == nil {
			continue
		}
		kind := subscriberKind(entry.sub)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType), kind).
				Inc()
		}
		if errors.Is(err, ErrSubscriberFull) {
			e.logger.Warn(
				"subscriber queue full, dropping event",
				"component", "event",
				"type", eventType,
				"subscriber", entry.id,
			)
			continue
		}
		e.logger.Debug(
			"event delivery error",
			"component", "event",
			"type", eventType,
			"error", err,
		)
		e.Unsubscribe(entry.eventType, entry.id)
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// deliver shields the bus from subscribers that panic
func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// Stop closes every subscriber so that SubscribeFunc goroutines exit.
// Events published afterward are dropped
func (e *EventBus) Stop() {
	e.stopOnce.Do(func() {
		e.stopMu.Lock()
		e.stopped = true
		e.stopMu.Unlock()

		e.mu.Lock()
		subs := e.subscribers
		e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
		e.mu.Unlock()
		for _, evtTypeSubs := range subs {
			for _, sub := range evtTypeSubs {
				sub.Close()
			}
		}
		if e.metrics != nil {
			e.metrics.subscribers.Reset()
		}
	})
}
