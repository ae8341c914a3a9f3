package controlplane

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin wrapper around a grpc.ClientConn that invokes the Stats
// service's methods, always opting into the JSON content-subtype codec
// registered in codec.go.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a running agent's control-plane endpoint.
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) callOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(codecName)}
}

// GetStats calls the agent's GetStats RPC.
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	resp := new(StatsResponse)
	err := c.conn.Invoke(ctx, "/"+ServiceName+"/GetStats", &StatsRequest{}, resp, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Reload calls the agent's Reload RPC.
func (c *Client) Reload(ctx context.Context, configPath string) (*ReloadResponse, error) {
	resp := new(ReloadResponse)
	req := &ReloadRequest{ConfigPath: configPath}
	err := c.conn.Invoke(ctx, "/"+ServiceName+"/Reload", req, resp, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
