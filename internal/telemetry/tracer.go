package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for SPOP connection/frame spans, following the same
// flat string-constant style as the teacher's own NFS/SMB attribute set.
const (
	AttrConnID     = "spop.conn_id"
	AttrPeerAddr   = "spop.peer_addr"
	AttrFrameType  = "spop.frame_type"
	AttrStreamID   = "spop.stream_id"
	AttrFrameID    = "spop.frame_id"
	AttrStatus     = "spop.status"
	AttrCapability = "spop.capability"
	AttrVersion    = "spop.version"
)

// Span names for SPOP operations.
const (
	SpanConnection = "spop.connection"
	SpanHandshake  = "spop.handshake"
	SpanNotify     = "spop.notify"
	SpanService    = "spop.service"
)

// ConnID returns an attribute for the connection's correlation id.
func ConnID(id string) attribute.KeyValue {
	return attribute.String(AttrConnID, id)
}

// PeerAddr returns an attribute for the connection's remote address.
func PeerAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrPeerAddr, addr)
}

// FrameType returns an attribute for a frame's type name.
func FrameType(name string) attribute.KeyValue {
	return attribute.String(AttrFrameType, name)
}

// StreamFrameIDs returns the paired (stream_id, frame_id) attributes that
// scope a notify/ack exchange.
func StreamFrameIDs(streamID, frameID uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrStreamID, int64(streamID)),
		attribute.Int64(AttrFrameID, int64(frameID)),
	}
}

// Status returns an attribute for a protocol status code.
func Status(code int) attribute.KeyValue {
	return attribute.Int(AttrStatus, code)
}

// Capability returns an attribute for a negotiated capability name.
func Capability(name string) attribute.KeyValue {
	return attribute.String(AttrCapability, name)
}

// Version returns an attribute for the negotiated protocol version.
func Version(v string) attribute.KeyValue {
	return attribute.String(AttrVersion, v)
}

// StartConnectionSpan starts the root span covering one connection's
// lifetime, from accept to disconnect.
func StartConnectionSpan(ctx context.Context, connID, peerAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanConnection, trace.WithAttributes(ConnID(connID), PeerAddr(peerAddr)))
}

// StartNotifySpan starts a span covering one notify's reassembly and
// service dispatch.
func StartNotifySpan(ctx context.Context, streamID, frameID uint64) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanNotify, trace.WithAttributes(StreamFrameIDs(streamID, frameID)...))
}
