package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/marmos91/spoagent/internal/cli/output"
	"github.com/marmos91/spoagent/internal/cli/timeutil"
	"github.com/marmos91/spoagent/internal/controlplane"
)

var statsTarget string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Query a running agent's control-plane statistics",
	Long: `Connect to a running agent's control-plane gRPC endpoint (started with
"spoagent start --control-plane <addr>") and print its live counters.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsTarget, "target", "127.0.0.1:9090", "control-plane address to query")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := controlplane.Dial(ctx, statsTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial control plane at %s: %w", statsTarget, err)
	}
	defer client.Close()

	resp, err := client.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	table := output.NewTableData("METRIC", "VALUE")
	table.AddRow("active_connections", fmt.Sprintf("%d", resp.ActiveConnections))
	table.AddRow("connections_total", fmt.Sprintf("%d", resp.ConnectionsTotal))
	table.AddRow("service_invocations", fmt.Sprintf("%d", resp.ServiceInvocations))
	table.AddRow("uptime", timeutil.FormatUptime(resp.Uptime))

	return output.PrintTable(os.Stdout, table)
}
