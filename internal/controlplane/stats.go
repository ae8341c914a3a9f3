// Package controlplane exposes a small gRPC service for introspecting and
// reloading a running agent: GetStats and Reload. Since this build never
// invokes protoc, request/response messages are plain Go structs carried
// over gRPC's framing with JSON encoding (see codec.go) rather than
// generated protobuf types.
package controlplane

import (
	"context"

	"google.golang.org/grpc"
)

// StatsRequest carries no fields; it exists so the RPC shape matches a
// conventional unary call.
type StatsRequest struct{}

// StatsResponse reports point-in-time counters for a running agent.
type StatsResponse struct {
	ActiveConnections  int64  `json:"active_connections"`
	ConnectionsTotal   int64  `json:"connections_total"`
	ServiceInvocations int64  `json:"service_invocations"`
	Uptime             string `json:"uptime"`
}

// ReloadRequest asks the agent to reload its configuration file.
type ReloadRequest struct {
	ConfigPath string `json:"config_path,omitempty"`
}

// ReloadResponse reports the outcome of a reload request.
type ReloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StatsServer is implemented by whatever can answer stats/reload queries;
// internal/agent.Acceptor plus internal/config together satisfy the data
// this interface needs.
type StatsServer interface {
	GetStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error)
	Reload(ctx context.Context, req *ReloadRequest) (*ReloadResponse, error)
}

// ServiceName is the gRPC service name under which the methods below are
// registered, mirroring the "package.Service" convention protoc-generated
// descriptors use.
const ServiceName = "spoagent.controlplane.v1.Stats"

// ServiceDesc is the hand-written equivalent of a protoc-generated
// grpc.ServiceDesc: it wires the two unary methods to handler functions
// that type-assert the server interface and let the registered JSON codec
// (see codec.go) handle (de)serialization.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStats",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(StatsRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(StatsServer).GetStats(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetStats"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(StatsServer).GetStats(ctx, req.(*StatsRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "Reload",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(ReloadRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(StatsServer).Reload(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Reload"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(StatsServer).Reload(ctx, req.(*ReloadRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "spoagent/controlplane.proto",
}

// RegisterStatsServer registers srv with s under ServiceDesc, the
// hand-written counterpart to a protoc-generated RegisterXxxServer
// function.
func RegisterStatsServer(s grpc.ServiceRegistrar, srv StatsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// NewServer builds a *grpc.Server forced onto the JSON codec, so it never
// expects a protobuf-framed request.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(jsonCodec{}))
	return grpc.NewServer(opts...)
}
