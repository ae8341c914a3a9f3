package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/service"
	"github.com/marmos91/spoagent/internal/spop"
)

func testRuntime() handshake.Runtime {
	return handshake.Runtime{
		SupportedVersions: spop.SupportedVersions,
		MaxFrameSize:      16384,
		Capabilities:      spop.AgentCapabilities,
		MaxProcessTime:    time.Second,
	}
}

func echoFactory(actions []spop.Action, err error) service.Factory {
	return func(connID string) service.Service {
		return func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
			return actions, err
		}
	}
}

func helloFrame(kv ...spop.KV) spop.Frame {
	return spop.HelloFrame(spop.FrameTypeHaproxyHello, kv)
}

func TestConnectingHealthcheckGoesDirectlyToDisconnected(t *testing.T) {
	c := Connecting{Runtime: testRuntime(), ServiceFactory: echoFactory(nil, nil), ConnID: "c1"}

	hello := helloFrame(
		spop.KV{Name: "supported-versions", Value: spop.StringValue("2.0")},
		spop.KV{Name: "max-frame-size", Value: spop.Uint32Value(1024)},
		spop.KV{Name: "capabilities", Value: spop.StringValue("")},
		spop.KV{Name: "healthcheck", Value: spop.Bool(true)},
	)

	next, reply, err := c.HandleFrame(context.Background(), hello)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, spop.FrameTypeAgentHello, reply.Type)
	assert.True(t, next.Done())
}

func TestConnectingNormalHelloGoesToProcessing(t *testing.T) {
	c := Connecting{Runtime: testRuntime(), ServiceFactory: echoFactory(nil, nil), ConnID: "c1"}

	hello := helloFrame(
		spop.KV{Name: "supported-versions", Value: spop.StringValue("2.0")},
		spop.KV{Name: "max-frame-size", Value: spop.Uint32Value(1024)},
		spop.KV{Name: "capabilities", Value: spop.StringValue("fragmentation")},
	)

	next, reply, err := c.HandleFrame(context.Background(), hello)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, spop.FrameTypeAgentHello, reply.Type)
	assert.False(t, next.Done())

	proc, ok := next.(Processing)
	require.True(t, ok)
	assert.NotNil(t, proc.Reassembly)
}

func TestConnectingRejectsNonHelloFrame(t *testing.T) {
	c := Connecting{Runtime: testRuntime(), ServiceFactory: echoFactory(nil, nil), ConnID: "c1"}

	notify := spop.Frame{
		Type:     spop.FrameTypeHaproxyNotify,
		Metadata: spop.Metadata{Flags: spop.FlagFin, StreamID: 1, FrameID: 1},
	}

	next, reply, err := c.HandleFrame(context.Background(), notify)
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.True(t, next.Done())
}

func processingState(t *testing.T, caps string, actions []spop.Action, svcErr error) Processing {
	t.Helper()
	c := Connecting{Runtime: testRuntime(), ServiceFactory: echoFactory(actions, svcErr), ConnID: "c1"}
	hello := helloFrame(
		spop.KV{Name: "supported-versions", Value: spop.StringValue("2.0")},
		spop.KV{Name: "max-frame-size", Value: spop.Uint32Value(1024)},
		spop.KV{Name: "capabilities", Value: spop.StringValue(caps)},
	)
	next, _, err := c.HandleFrame(context.Background(), hello)
	require.NoError(t, err)
	return next.(Processing)
}

func notifyFrame(streamID, frameID uint64, fin bool, messages ...spop.Message) spop.Frame {
	flags := uint32(0)
	if fin {
		flags = spop.FlagFin
	}
	return spop.Frame{
		Type:     spop.FrameTypeHaproxyNotify,
		Metadata: spop.Metadata{Flags: flags, StreamID: streamID, FrameID: frameID},
		Messages: messages,
	}
}

func TestProcessingSingleNotifyProducesAck(t *testing.T) {
	wantActions := []spop.Action{spop.SetVar(spop.ScopeSession, "x", spop.Uint32Value(7))}
	p := processingState(t, "pipelining", wantActions, nil)

	next, reply, err := p.HandleFrame(context.Background(), notifyFrame(1, 1, true, spop.Message{Name: "m"}))
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, spop.FrameTypeAgentAck, reply.Type)
	assert.Equal(t, uint64(1), reply.Metadata.StreamID)
	assert.Equal(t, uint64(1), reply.Metadata.FrameID)
	assert.Equal(t, wantActions, reply.Actions)
	assert.False(t, next.Done())
}

func TestProcessingFragmentedNotifyReassembles(t *testing.T) {
	p := processingState(t, "fragmentation", nil, nil)

	next, reply, err := p.HandleFrame(context.Background(), notifyFrame(2, 3, false, spop.Message{Name: "A"}))
	require.NoError(t, err)
	assert.Nil(t, reply)
	p = next.(Processing)

	next, reply, err = p.HandleFrame(context.Background(), notifyFrame(2, 3, true, spop.Message{Name: "B"}, spop.Message{Name: "C"}))
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, uint64(2), reply.Metadata.StreamID)
	assert.Equal(t, uint64(3), reply.Metadata.FrameID)
	assert.False(t, next.Done())
}

func TestProcessingFragmentNotSupported(t *testing.T) {
	p := processingState(t, "", nil, nil)

	next, reply, err := p.HandleFrame(context.Background(), notifyFrame(1, 1, false, spop.Message{Name: "A"}))
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.True(t, next.Done())

	var perr *spop.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, spop.StatusFragmentNotSupported, perr.Status)
}

func TestProcessingDisconnectFrameIsNormalTeardown(t *testing.T) {
	p := processingState(t, "", nil, nil)

	disconnect := spop.DisconnectFrame(spop.FrameTypeHaproxyDisconnect, nil)
	next, reply, err := p.HandleFrame(context.Background(), disconnect)
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.True(t, next.Done())

	var perr *spop.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, spop.StatusNormal, perr.Status)
}

func TestProcessingUnexpectedFrameIsInvalid(t *testing.T) {
	p := processingState(t, "", nil, nil)

	next, reply, err := p.HandleFrame(context.Background(), helloFrame())
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.True(t, next.Done())

	var perr *spop.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, spop.StatusInvalid, perr.Status)
}

func TestDisconnectedIgnoresAnyFrame(t *testing.T) {
	d := Disconnected{}
	next, reply, err := d.HandleFrame(context.Background(), helloFrame())
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.True(t, next.Done())
}
