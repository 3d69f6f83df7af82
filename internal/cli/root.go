// Package cli wires the coachdraft commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "coachdraft",
		Short:        "Coach draft engine with an HTTP/WebSocket server and a terminal client",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (env: CONFIG_FILE)")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newPlayCmd(&configPath))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
