// Package conn owns one accepted socket end to end: it drives the state
// machine, writes replies, enforces the negotiated max frame size, and
// answers cooperative shutdown by sending a final AgentDisconnect.
package conn

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/logger"
	"github.com/marmos91/spoagent/internal/metrics"
	"github.com/marmos91/spoagent/internal/service"
	"github.com/marmos91/spoagent/internal/spop"
	"github.com/marmos91/spoagent/internal/state"
	"github.com/marmos91/spoagent/internal/telemetry"
)

// Connection owns a byte stream, a framer bound to the negotiated max frame
// size, and the current state-machine value. It exclusively owns these for
// its lifetime; nothing else touches them concurrently.
type Connection struct {
	id       string
	peerAddr string
	framer   *spop.Framer
	current  state.State
	metrics  *metrics.Metrics
	logCtx   *logger.LogContext
}

// New builds a Connection around rw, ready to serve starting from
// Connecting.
func New(rw io.ReadWriter, runtime handshake.Runtime, factory service.Factory, peerAddr string, m *metrics.Metrics) *Connection {
	id := uuid.NewString()

	return &Connection{
		id:       id,
		peerAddr: peerAddr,
		framer:   spop.NewFramer(rw),
		current: state.Connecting{
			Runtime:        runtime,
			ServiceFactory: factory,
			ConnID:         id,
		},
		metrics: m,
		logCtx:  logger.NewLogContext(id, peerAddr),
	}
}

// ID returns the connection's correlation id.
func (c *Connection) ID() string { return c.id }

// Serve reads frames and drives the state machine until the connection
// reaches Disconnected, the context is cancelled, or a read fails. Read
// errors and fatal protocol errors are reported; a clean peer-initiated
// close (StatusNormal) is not treated as a failure by the caller.
func (c *Connection) Serve(ctx context.Context) error {
	ctx = logger.WithContext(ctx, c.logCtx)

	ctx, span := telemetry.StartConnectionSpan(ctx, c.id, c.peerAddr)
	defer span.End()

	if c.metrics != nil {
		c.metrics.ConnectionsAccepted.Inc()
		defer c.metrics.ConnectionsClosed.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			return c.Disconnect(spop.StatusNormal, "shutting down")
		default:
		}

		frame, err := c.readFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.Disconnect(spop.StatusNormal, "shutting down")
			}
			return err
		}

		next, reply, err := c.current.HandleFrame(ctx, frame)
		c.current = next
		if p, ok := next.(state.Processing); ok {
			c.framer.MaxFrameSize = p.Negotiated.MaxFrameSize
		}

		if reply != nil {
			if werr := c.writeFrame(*reply); werr != nil {
				return werr
			}
		}

		if err != nil {
			return c.fail(ctx, err)
		}

		if c.current.Done() {
			return nil
		}
	}
}

// readFrame reads the next frame, racing the read against ctx so a
// shutdown signal preempts an in-progress, possibly long-blocked read.
func (c *Connection) readFrame(ctx context.Context) (spop.Frame, error) {
	type result struct {
		frame spop.Frame
		err   error
	}
	done := make(chan result, 1)

	go func() {
		f, err := c.framer.ReadFrame()
		done <- result{frame: f, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if perr, ok := r.err.(*spop.Error); ok {
				_ = c.fail(ctx, perr)
			}
			return spop.Frame{}, r.err
		}
		if c.metrics != nil {
			c.metrics.FramesRead.WithLabelValues(r.frame.Type.String()).Inc()
		}
		return r.frame, nil
	case <-ctx.Done():
		return spop.Frame{}, ctx.Err()
	}
}

func (c *Connection) writeFrame(f spop.Frame) error {
	start := time.Now()
	err := c.framer.WriteFrame(f)
	if c.metrics != nil {
		c.metrics.WriteLatency.Observe(time.Since(start).Seconds())
		if err == nil {
			c.metrics.FramesWritten.WithLabelValues(f.Type.String()).Inc()
		}
	}
	return err
}

// fail sends a best-effort AgentDisconnect carrying the error's status and
// message, then returns the original error to the caller.
func (c *Connection) fail(ctx context.Context, err error) error {
	status := spop.StatusUnknown
	reason := err.Error()
	if perr, ok := err.(*spop.Error); ok {
		status = perr.Status
		reason = perr.Message()
	}

	logger.DebugCtx(ctx, "connection teardown", logger.Status(uint32(status)), logger.StatusMsg(reason))

	_ = c.writeFrame(spop.DisconnectFrame(spop.FrameTypeAgentDisconnect, []spop.KV{
		{Name: "status-code", Value: spop.Uint32Value(uint32(status))},
		{Name: "message", Value: spop.StringValue(reason)},
	}))

	return err
}

// Disconnect synthesizes and sends an AgentDisconnect with the given status
// and reason, used by cooperative shutdown to say goodbye before closing.
func (c *Connection) Disconnect(status spop.Status, reason string) error {
	return c.writeFrame(spop.DisconnectFrame(spop.FrameTypeAgentDisconnect, []spop.KV{
		{Name: "status-code", Value: spop.Uint32Value(uint32(status))},
		{Name: "message", Value: spop.StringValue(reason)},
	}))
}
