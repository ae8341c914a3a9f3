package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/service"
	"github.com/marmos91/spoagent/internal/spop"
)

func echoFactory() service.Factory {
	return func(connID string) service.Service {
		return func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
			return nil, nil
		}
	}
}

func TestAcceptorServesHealthcheckHandshake(t *testing.T) {
	cfg := Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		MaxConnections:  4,
		ShutdownTimeout: time.Second,
		Runtime: handshake.Runtime{
			SupportedVersions: spop.SupportedVersions,
			MaxFrameSize:      16384,
			Capabilities:      spop.AgentCapabilities,
			MaxProcessTime:    time.Second,
		},
		ServiceFactory: echoFactory(),
	}
	a := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- a.Serve(ctx) }()

	addr := a.Addr()

	client, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer client.Close()

	framer := spop.NewFramer(client)
	hello := spop.HelloFrame(spop.FrameTypeHaproxyHello, []spop.KV{
		{Name: "supported-versions", Value: spop.StringValue("2.0")},
		{Name: "max-frame-size", Value: spop.Uint32Value(1024)},
		{Name: "capabilities", Value: spop.StringValue("")},
		{Name: "healthcheck", Value: spop.Bool(true)},
	})
	require.NoError(t, framer.WriteFrame(hello))

	reply, err := framer.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, spop.FrameTypeAgentHello, reply.Type)

	cancel()
	select {
	case err := <-serveDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor did not shut down in time")
	}
}
