// Command spoagent runs a standalone SPOP agent: it listens for HAProxy
// connections, negotiates the protocol, and dispatches notifies to the
// bundled HTTP-mirroring example service.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/spoagent/cmd/spoagent/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
