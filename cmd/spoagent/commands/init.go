package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/spoagent/internal/cli/prompt"
	"github.com/marmos91/spoagent/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively generate a sample configuration file",
	Long: `Walk through the agent's key settings and write a configuration file.

By default, the file is created at $XDG_CONFIG_HOME/spoagent/config.yaml.
Use --config to choose a different path, or --force to overwrite an
existing file non-interactively.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing configuration file without prompting")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if !initForce && config.DefaultConfigExists() {
		ok, err := prompt.Confirm(fmt.Sprintf("%s already exists. Overwrite?", path), false)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	address, err := prompt.Input("Listen address", "0.0.0.0")
	if err != nil {
		return abortOrErr(err)
	}

	portStr, err := prompt.Input("Listen port", "12345")
	if err != nil {
		return abortOrErr(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	mirrorURL, err := prompt.Input("Mirror target URL (blank to disable)", "")
	if err != nil {
		return abortOrErr(err)
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	cfg.Listen.Address = address
	cfg.Listen.Port = port
	cfg.Mirror.URL = mirrorURL

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Printf("Configuration written to: %s\n", path)
	fmt.Printf("Start the agent with: spoagent start --config %s\n", path)
	return nil
}

func abortOrErr(err error) error {
	if prompt.IsAborted(err) {
		return nil
	}
	return err
}
