package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/marmos91/spoagent/internal/adminhttp"
	"github.com/marmos91/spoagent/internal/agent"
	"github.com/marmos91/spoagent/internal/config"
	"github.com/marmos91/spoagent/internal/controlplane"
	"github.com/marmos91/spoagent/internal/handshake"
	"github.com/marmos91/spoagent/internal/logger"
	"github.com/marmos91/spoagent/internal/metrics"
	"github.com/marmos91/spoagent/internal/mirror"
	"github.com/marmos91/spoagent/internal/spop"
	"github.com/marmos91/spoagent/internal/telemetry"
)

var controlPlaneAddr string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the SPOP agent",
	Long: `Start the SPOP agent listening for HAProxy connections.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/spoagent/config.yaml.

Examples:
  # Start with the default config location
  spoagent start

  # Start with a custom config file
  spoagent start --config /etc/spoagent/config.yaml

  # Override individual settings with environment variables
  SPOAGENT_LOGGING_LEVEL=DEBUG spoagent start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&controlPlaneAddr, "control-plane", "", "address to expose the gRPC control plane on (disabled if empty)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "spoagent",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "spoagent",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("init profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	runtime := handshake.Runtime{
		SupportedVersions: []spop.Version{{Major: 2, Minor: 0}},
		MaxFrameSize:      cfg.MaxFrameSize,
		Capabilities:      capabilitySetFromStrings(cfg.Capabilities),
		MaxProcessTime:    cfg.MaxProcessTime,
	}

	serviceFactory := mirror.New(mirror.Config{URL: cfg.Mirror.URL, Timeout: cfg.Mirror.Timeout})

	a := agent.New(agent.Config{
		BindAddress:     cfg.Listen.Address,
		Port:            cfg.Listen.Port,
		MaxConnections:  cfg.MaxConnections,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Runtime:         runtime,
		ServiceFactory:  serviceFactory,
		Metrics:         metrics.Get(),
	})

	var adminSrv *http.Server
	if cfg.Admin.Enabled {
		adminSrv = &http.Server{
			Addr:    cfg.Admin.Address,
			Handler: adminhttp.NewRouter(metrics.GetRegistry(), a),
		}
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin HTTP server error", "error", err)
			}
		}()
		logger.Info("admin HTTP surface listening", "address", cfg.Admin.Address)
	}

	var grpcSrv *grpc.Server
	if controlPlaneAddr != "" {
		lis, err := net.Listen("tcp", controlPlaneAddr)
		if err != nil {
			return fmt.Errorf("listen on control plane address %s: %w", controlPlaneAddr, err)
		}
		grpcSrv = controlplane.NewServer()
		controlplane.RegisterStatsServer(grpcSrv, controlplane.NewServerImpl(a, GetConfigFile(), nil))
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("control plane server error", "error", err)
			}
		}()
		logger.Info("control plane listening", "address", controlPlaneAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() { serveDone <- a.Serve(ctx) }()

	logger.Info("spoagent running", "listen", fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port))

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
		cancel()
		err = <-serveDone
	case err = <-serveDone:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if adminSrv != nil {
		_ = adminSrv.Shutdown(shutdownCtx)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	if err != nil {
		logger.Error("agent stopped with error", "error", err)
		return err
	}
	logger.Info("agent stopped")
	return nil
}

// capabilitySetFromStrings builds the agent's own offered capability set
// from its configuration's flat string list, the same format negotiated
// hellos carry on the wire.
func capabilitySetFromStrings(caps []string) spop.CapabilitySet {
	set := make(spop.CapabilitySet, len(caps))
	for _, c := range caps {
		set[spop.Capability(c)] = struct{}{}
	}
	return set
}

