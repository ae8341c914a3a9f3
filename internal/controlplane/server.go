package controlplane

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/marmos91/spoagent/internal/config"
)

// ConnectionStats is the subset of internal/agent.Acceptor this package
// depends on, kept narrow so controlplane never needs to import agent.
type ConnectionStats interface {
	ActiveConnections() int64
}

// Server implements StatsServer against a running agent's live counters
// and configuration.
type Server struct {
	stats      ConnectionStats
	configPath string
	startedAt  time.Time

	connectionsTotal   atomic.Int64
	serviceInvocations atomic.Int64

	onReload func(*config.Config)
}

// NewServerImpl builds a Server backed by stats and the config file at
// configPath. onReload, if non-nil, is invoked after a successful Reload
// RPC with the freshly loaded configuration.
func NewServerImpl(stats ConnectionStats, configPath string, onReload func(*config.Config)) *Server {
	return &Server{stats: stats, configPath: configPath, onReload: onReload, startedAt: time.Now()}
}

// RecordConnection increments the lifetime connection counter surfaced by
// GetStats.
func (s *Server) RecordConnection() { s.connectionsTotal.Add(1) }

// RecordServiceInvocation increments the lifetime service-invocation
// counter surfaced by GetStats.
func (s *Server) RecordServiceInvocation() { s.serviceInvocations.Add(1) }

func (s *Server) GetStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	active := int64(0)
	if s.stats != nil {
		active = s.stats.ActiveConnections()
	}
	return &StatsResponse{
		ActiveConnections:  active,
		ConnectionsTotal:   s.connectionsTotal.Load(),
		ServiceInvocations: s.serviceInvocations.Load(),
		Uptime:             time.Since(s.startedAt).String(),
	}, nil
}

func (s *Server) Reload(ctx context.Context, req *ReloadRequest) (*ReloadResponse, error) {
	path := req.ConfigPath
	if path == "" {
		path = s.configPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return &ReloadResponse{Success: false, Message: err.Error()}, nil
	}

	if s.onReload != nil {
		s.onReload(cfg)
	}

	return &ReloadResponse{Success: true}, nil
}
