package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so operators can
// filter/aggregate on them regardless of which component emitted the line.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Connection identity
	// ========================================================================
	KeyConnID    = "conn_id"     // Per-connection correlation id (uuid)
	KeyPeerAddr  = "peer_addr"   // Remote address of the HAProxy engine
	KeyEngineID  = "engine_id"   // HAProxy engine-id from the inbound hello
	KeyLocalAddr = "local_addr"  // Local listen address the connection arrived on

	// ========================================================================
	// Protocol / frame
	// ========================================================================
	KeyFrameType  = "frame_type"  // SPOP frame type name
	KeyStreamID   = "stream_id"   // SPOP stream-id
	KeyFrameID    = "frame_id"    // SPOP frame-id
	KeyFragmented = "fragmented"  // Whether the frame is a non-final fragment
	KeyFrameSize  = "frame_size"  // Declared/serialized frame length in bytes
	KeyStatus     = "status"      // SPOP status code
	KeyStatusMsg  = "status_msg"  // Human-readable status message
	KeyCapability = "capability"  // A single negotiated capability
	KeyVersion    = "version"     // Negotiated protocol version

	// ========================================================================
	// Messages / actions
	// ========================================================================
	KeyMessageName = "message_name" // Notify message name
	KeyActionType  = "action_type"  // set-var / unset-var
	KeyScope       = "scope"        // Action scope
	KeyVarName     = "var_name"     // Variable name touched by an action

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyOperation  = "operation"   // Sub-operation label

	// ========================================================================
	// Acceptor / service
	// ========================================================================
	KeyActiveConns = "active_connections" // Current connection count
	KeyMaxConns    = "max_connections"    // Configured connection limit
	KeyInFlight    = "in_flight"          // Outstanding service invocations on a connection
)

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ConnID returns a slog.Attr for the per-connection correlation id.
func ConnID(id string) slog.Attr {
	return slog.String(KeyConnID, id)
}

// PeerAddr returns a slog.Attr for the remote address.
func PeerAddr(addr string) slog.Attr {
	return slog.String(KeyPeerAddr, addr)
}

// FrameType returns a slog.Attr for a frame type name.
func FrameType(t string) slog.Attr {
	return slog.String(KeyFrameType, t)
}

// StreamID returns a slog.Attr for a stream id.
func StreamID(id uint64) slog.Attr {
	return slog.Uint64(KeyStreamID, id)
}

// FrameID returns a slog.Attr for a frame id.
func FrameID(id uint64) slog.Attr {
	return slog.Uint64(KeyFrameID, id)
}

// Status returns a slog.Attr for a SPOP status code.
func Status(code uint32) slog.Attr {
	return slog.Uint64(KeyStatus, uint64(code))
}

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// HandleHex is retained for components that log opaque byte identifiers
// (e.g. an engine-supplied correlation token) as hex.
func HandleHex(b []byte) slog.Attr {
	return slog.String("handle", fmt.Sprintf("%x", b))
}
