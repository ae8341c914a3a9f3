package state

import (
	"context"

	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/service"
	"github.com/marmos91/spoagent/internal/spop"
	"github.com/marmos91/spoagent/internal/telemetry"
)

// Processing is the steady-state: the connection has a negotiated
// handshake, a service adapter, and (iff fragmentation was negotiated) a
// reassembly table.
type Processing struct {
	Negotiated handshake.Negotiated
	Reassembly *spop.Reassembly // nil when fragmentation was not negotiated
	Service    *service.Adapter
}

func (p Processing) Done() bool { return false }

func (p Processing) HandleFrame(ctx context.Context, frame spop.Frame) (State, *spop.Frame, error) {
	switch frame.Type {
	case spop.FrameTypeHaproxyNotify:
		return p.handleNotify(ctx, frame)
	case spop.FrameTypeHaproxyDisconnect:
		return Disconnected{}, nil, spop.NewError(spop.StatusNormal, "peer closed connection")
	default:
		return Disconnected{}, nil, spop.NewError(spop.StatusInvalid, "unexpected frame in processing state")
	}
}

func (p Processing) handleNotify(ctx context.Context, frame spop.Frame) (State, *spop.Frame, error) {
	key := spop.ReassemblyKey{StreamID: frame.Metadata.StreamID, FrameID: frame.Metadata.FrameID}
	fragmented := !frame.Metadata.Fin()

	var messages []spop.Message
	var ready bool

	if p.Reassembly != nil {
		messages, ready = p.Reassembly.Reassemble(key, fragmented, frame.Messages)
	} else {
		if fragmented {
			return Disconnected{}, nil, spop.NewError(spop.StatusFragmentNotSupported, "fragmented notify on a connection without the fragmentation capability")
		}
		messages, ready = frame.Messages, true
	}

	if !ready {
		// Still buffering fragments; no reply yet, no state change.
		return p, nil, nil
	}

	spanCtx, span := telemetry.StartNotifySpan(ctx, key.StreamID, key.FrameID)
	actions, err := p.Service.Invoke(spanCtx, messages)
	span.End()
	if err != nil {
		if perr, ok := asProtocolError(err); ok {
			return Disconnected{}, nil, perr
		}
		return Disconnected{}, nil, spop.WrapError(spop.StatusUnknown, "service invocation", err)
	}

	ack := spop.AckFrame(spop.Metadata{Flags: spop.FlagFin, StreamID: key.StreamID, FrameID: key.FrameID}, actions)
	return p, &ack, nil
}

func asProtocolError(err error) (*spop.Error, bool) {
	perr, ok := err.(*spop.Error)
	return perr, ok
}

// Disconnected is the terminal state. Once reached, no further frames are
// produced or consumed.
type Disconnected struct{}

func (Disconnected) Done() bool { return true }

func (Disconnected) HandleFrame(ctx context.Context, frame spop.Frame) (State, *spop.Frame, error) {
	return Disconnected{}, nil, nil
}
