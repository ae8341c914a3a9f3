package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for one SPOP connection.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	ConnID    string    // Per-connection correlation id
	PeerAddr  string    // Remote address of the HAProxy engine
	EngineID  string    // HAProxy engine-id, once known from the hello
	StreamID  uint64    // Stream id of the notify currently being handled
	FrameID   uint64    // Frame id of the notify currently being handled
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly accepted connection.
func NewLogContext(connID, peerAddr string) *LogContext {
	return &LogContext{
		ConnID:    connID,
		PeerAddr:  peerAddr,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		ConnID:    lc.ConnID,
		PeerAddr:  lc.PeerAddr,
		EngineID:  lc.EngineID,
		StreamID:  lc.StreamID,
		FrameID:   lc.FrameID,
		StartTime: lc.StartTime,
	}
}

// WithEngineID returns a copy with the engine-id set
func (lc *LogContext) WithEngineID(engineID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.EngineID = engineID
	}
	return clone
}

// WithStream returns a copy scoped to the given (stream_id, frame_id) pair
func (lc *LogContext) WithStream(streamID, frameID uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StreamID = streamID
		clone.FrameID = frameID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
