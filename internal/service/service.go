// Package service adapts a user-supplied message handler into a
// bounded-concurrency, timeout-enforcing invocation the connection state
// machine can call without knowing how the handler computes its result.
package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/marmos91/spoagent/internal/spop"
	"github.com/marmos91/spoagent/internal/telemetry"
)

// Service is the user-supplied function that turns a batch of messages
// (one notify's worth, already reassembled) into the actions HAProxy should
// apply. Implementations are free to be arbitrarily slow or to fail; the
// Adapter enforces the timeout and inflight bound around every call.
type Service func(ctx context.Context, messages []spop.Message) ([]spop.Action, error)

// Factory builds a Service for a newly handshaked connection. Separating
// construction from invocation lets implementations capture per-connection
// state (a negotiated engine-id, a correlation id) without threading a
// generic parameter through the state machine and connection layers.
type Factory func(connID string) Service

// Adapter wraps a Service with a per-call timeout and a bound on the number
// of concurrent in-flight invocations for one connection. A bound of 1
// enforces strict request/response; a higher bound allows pipelined
// notify/ack exchanges when the Pipelining capability was negotiated.
type Adapter struct {
	service Service
	timeout time.Duration
	sem     *semaphore.Weighted
}

// NewAdapter builds an Adapter. maxInFlight must be >= 1.
func NewAdapter(svc Service, timeout time.Duration, maxInFlight int64) *Adapter {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Adapter{
		service: svc,
		timeout: timeout,
		sem:     semaphore.NewWeighted(maxInFlight),
	}
}

// Invoke acquires an inflight slot, runs the service under the adapter's
// timeout, and releases the slot before returning. Acquisition itself
// respects ctx, so a cancelled connection never blocks forever waiting for
// a slot.
func (a *Adapter) Invoke(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, spop.WrapError(spop.StatusUnknown, "acquiring service slot", err)
	}
	defer a.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		actions []spop.Action
		err     error
	}
	done := make(chan result, 1)

	go func() {
		spanCtx, span := telemetry.StartSpan(callCtx, telemetry.SpanService)
		actions, err := a.service(spanCtx, messages)
		span.End()
		done <- result{actions: actions, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, spop.WrapError(spop.StatusUnknown, "service invocation failed", r.err)
		}
		return r.actions, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, spop.WrapError(spop.StatusNormal, "connection cancelled", ctx.Err())
		}
		return nil, spop.NewError(spop.StatusTimeout, fmt.Sprintf("service call exceeded %s", a.timeout))
	}
}
