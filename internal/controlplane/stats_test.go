package controlplane

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/marmos91/spoagent/internal/config"
)

type fakeStats struct{ active int64 }

func (f fakeStats) ActiveConnections() int64 { return f.active }

func startTestServer(t *testing.T, impl StatsServer) (*grpc.ClientConn, func()) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := NewServer()
	RegisterStatsServer(srv, impl)

	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	return conn, func() {
		_ = conn.Close()
		srv.Stop()
	}
}

func TestGetStatsRoundTrip(t *testing.T) {
	impl := NewServerImpl(fakeStats{active: 7}, "", nil)
	conn, cleanup := startTestServer(t, impl)
	defer cleanup()

	client := &Client{conn: conn}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.ActiveConnections)
}

func TestReloadRoundTripInvokesCallback(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("listen:\n  address: \"0.0.0.0\"\n  port: 1\n"), 0o644))

	var reloadedPort int
	impl := NewServerImpl(fakeStats{}, configPath, func(cfg *config.Config) {
		reloadedPort = cfg.Listen.Port
	})
	conn, cleanup := startTestServer(t, impl)
	defer cleanup()

	client := &Client{conn: conn}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Reload(ctx, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, reloadedPort)
}
