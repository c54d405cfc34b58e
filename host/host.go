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

package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/scholarhub/database"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/blinklabs-io/scholarhub/event"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/scholarhub/host"

// Host runs contract operations against the database. Each write
// invocation is atomic and invocations that write are serialized
type Host struct {
	db             *database.Database
	eventBus       *event.EventBus
	auth           Authenticator
	clock          Clock
	logger         *slog.Logger
	promRegistry   prometheus.Registerer
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	metrics        *hostMetrics
	writeMutex     sync.Mutex
}

func New(opts ...HostOptionFunc) (*Host, error) {
	h := &Host{}
	for _, opt := range opts {
		opt(h)
	}
	if h.db == nil {
		return nil, errors.New("host requires a database")
	}
	if h.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		h.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if h.auth == nil {
		h.auth = CallerAuthenticator{}
	}
	if h.clock == nil {
		h.clock = SystemClock{}
	}
	if h.tracerProvider == nil {
		h.tracerProvider = otel.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)
	if h.promRegistry != nil {
		h.initMetrics()
	}
	return h, nil
}

// DB returns the database used for contract state
func (h *Host) DB() *database.Database {
	return h.db
}

// EventBus returns the bus that committed events are published on, which
// may be nil
func (h *Host) EventBus() *event.EventBus {
	return h.eventBus
}

// Clock returns the ledger time source
func (h *Host) Clock() Clock {
	return h.clock
}

// Invoke runs fn in a read-write transaction on behalf of contract. The
// transaction commits only if fn succeeds, and the events fn emitted are
// published once it has
func (h *Host) Invoke(
	ctx context.Context,
	contract string,
	operation string,
	fn func(*Env) error,
) error {
	h.writeMutex.Lock()
	defer h.writeMutex.Unlock()
	ctx, span := h.startSpan(ctx, contract, operation, true)
	defer span.End()
	start := time.Now()
	env := &Env{
		ctx:       ctx,
		host:      h,
		contract:  contract,
		timestamp: h.clock.Now(),
	}
	err := h.db.Transaction(true).Do(func(txn *database.Txn) error {
		env.txn = txn
		if err := fn(env); err != nil {
			return err
		}
		extended, err := txn.ExtendLifetime()
		if err != nil {
			return fmt.Errorf("extend state lifetime: %w", err)
		}
		if extended > 0 && h.metrics != nil {
			h.metrics.ttlExtended.Add(float64(extended))
		}
		return nil
	})
	h.finish(span, contract, operation, start, err)
	if err != nil {
		return err
	}
	// Still under writeMutex, so subscribers see events in commit order
	for _, evt := range env.emitted {
		if h.metrics != nil {
			h.metrics.events.WithLabelValues(string(evt.Type)).Inc()
		}
		if h.eventBus != nil {
			h.eventBus.Publish(evt.Type, evt)
		}
	}
	return nil
}

// View runs fn in a read-only transaction. Writes and emitted events fail
func (h *Host) View(
	ctx context.Context,
	contract string,
	operation string,
	fn func(*Env) error,
) error {
	ctx, span := h.startSpan(ctx, contract, operation, false)
	defer span.End()
	start := time.Now()
	txn := h.db.Transaction(false)
	defer txn.Release()
	env := &Env{
		ctx:       ctx,
		host:      h,
		contract:  contract,
		txn:       txn,
		timestamp: h.clock.Now(),
	}
	err := fn(env)
	h.finish(span, contract, operation, start, err)
	return err
}

func (h *Host) startSpan(
	ctx context.Context,
	contract string,
	operation string,
	readWrite bool,
) (context.Context, trace.Span) {
	return h.tracer.Start(
		ctx,
		contract+"."+operation,
		trace.WithAttributes(
			attribute.String("contract", contract),
			attribute.String("operation", operation),
			attribute.Bool("read_write", readWrite),
		),
	)
}

func (h *Host) finish(
	span trace.Span,
	contract string,
	operation string,
	start time.Time,
	err error,
) {
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Debug(
			fmt.Sprintf("%s.%s failed: %s", contract, operation, err),
			"component", "host",
		)
	}
	if h.metrics != nil {
		h.metrics.invocations.WithLabelValues(contract, operation, result).Inc()
		h.metrics.duration.WithLabelValues(contract, operation).
			Observe(time.Since(start).Seconds())
	}
}

// Env is the environment a contract operation runs in
type Env struct {
	ctx       context.Context
	host      *Host
	txn       *database.Txn
	contract  string
	emitted   []event.Event
	timestamp uint64
}

// Context returns the invocation context, which carries the caller
func (e *Env) Context() context.Context {
	return e.ctx
}

// RequireAuth fails with ErrUnauthorized unless the caller controls id
func (e *Env) RequireAuth(id Identity) error {
	return e.host.auth.RequireAuth(e.ctx, id)
}

// Now returns the ledger time of the invocation
func (e *Env) Now() uint64 {
	return e.timestamp
}

// DB returns the database holding contract state
func (e *Env) DB() *database.Database {
	return e.host.db
}

// Txn returns the invocation transaction
func (e *Env) Txn() *database.Txn {
	return e.txn
}

// Logger returns the host logger
func (e *Env) Logger() *slog.Logger {
	return e.host.logger
}

// Emit records a contract event. It is written to the event log with the
// invocation state and published after commit
func (e *Env) Emit(eventType event.EventType, data any) error {
	if !e.txn.ReadWrite() {
		return types.ErrReadOnlyTxn
	}
	payload, err := cbor.Encode(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	record := &models.ContractEvent{
		EventID:   uuid.NewString(),
		Contract:  e.contract,
		Topic:     string(eventType),
		Payload:   payload,
		Timestamp: e.timestamp,
	}
	if err := e.host.db.AddEvent(record, e.txn); err != nil {
		return fmt.Errorf("store %s event: %w", eventType, err)
	}
	e.emitted = append(e.emitted, event.NewEvent(eventType, data))
	e.host.logger.Debug(
		fmt.Sprintf("emitted %s event", eventType),
		"component", "host",
		"contract", e.contract,
		"event_id", record.EventID,
	)
	return nil
}
