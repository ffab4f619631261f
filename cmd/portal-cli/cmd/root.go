package cmd

import (
	"fmt"
	"os"
	"portalbot-backend/cmd/portal-cli/cmd/caskan"
	"portalbot-backend/cmd/portal-cli/cmd/estama"
	"portalbot-backend/cmd/portal-cli/cmd/snapshot"
	"portalbot-backend/cmd/portal-cli/globals"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "portal-cli",
	Short: "portal-cli runs the portal operations of portald once from the terminal.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "portald.json5", "Path to the config file.")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().BoolVar(&globals.JSON, "json", false, "Print results as JSON.")

	rootCmd.AddCommand(caskan.RootCmd)
	rootCmd.AddCommand(estama.RootCmd)
	rootCmd.AddCommand(snapshot.RootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
