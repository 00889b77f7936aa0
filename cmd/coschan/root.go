package main

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for coschan.
var rootCmd = &cobra.Command{
	Use:           "coschan",
	Short:         "TCP, KCP and WebSocket channel services",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, dialCmd)
}
