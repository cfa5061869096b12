package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "solver-api",
	Short: "Assignment solver API service",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}
