// Package state implements the per-connection state machine:
// Connecting -> Processing -> Disconnected. Each state is a small value
// type whose HandleFrame method is a pure function of (state, frame) ->
// (next state, optional reply, error), mirroring the wire protocol's own
// invariants and keeping the transition table unit-testable in isolation
// from any I/O.
package state

import (
	"context"

	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/service"
	"github.com/marmos91/spoagent/internal/spop"
	"github.com/marmos91/spoagent/internal/telemetry"
)

// State is the closed set of states a connection passes through.
type State interface {
	// HandleFrame processes one inbound frame and returns the next state
	// plus an optional reply frame to write. A non-nil error is fatal: the
	// caller sends a single AgentDisconnect built from the error's Status
	// and closes the connection.
	HandleFrame(ctx context.Context, frame spop.Frame) (State, *spop.Frame, error)

	// Done reports whether this is the terminal Disconnected state.
	Done() bool
}

// Connecting is the initial state: it has only the runtime negotiation
// parameters and awaits a HaproxyHello.
type Connecting struct {
	Runtime        handshake.Runtime
	ServiceFactory service.Factory
	ConnID         string
}

func (c Connecting) Done() bool { return false }

func (c Connecting) HandleFrame(ctx context.Context, frame spop.Frame) (State, *spop.Frame, error) {
	if frame.Type != spop.FrameTypeHaproxyHello {
		return Disconnected{}, nil, spop.NewError(spop.StatusInvalid, "expected haproxy-hello frame")
	}

	_, span := telemetry.StartSpan(ctx, telemetry.SpanHandshake)
	negotiated, err := handshake.Negotiate(c.Runtime, frame)
	if err != nil {
		span.End()
		return Disconnected{}, nil, err
	}
	span.SetAttributes(telemetry.Version(negotiated.Version.String()))
	span.End()

	reply := handshake.AgentHelloFrame(negotiated)

	if negotiated.Healthcheck {
		return Disconnected{}, &reply, nil
	}

	var reassembly *spop.Reassembly
	if negotiated.Capabilities.Has(spop.CapabilityFragmentation) {
		reassembly = spop.NewReassembly()
	}

	maxInFlight := int64(1)
	if negotiated.Capabilities.Has(spop.CapabilityPipelining) {
		maxInFlight = 8
	}

	next := Processing{
		Negotiated: negotiated,
		Reassembly: reassembly,
		Service:    service.NewAdapter(c.ServiceFactory(c.ConnID), c.Runtime.MaxProcessTime, maxInFlight),
	}

	return next, &reply, nil
}
