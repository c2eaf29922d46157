package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "aerae-api",
	Short: "AERAE governance assessment service",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newSeedCmd())
}
