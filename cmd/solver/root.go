package main

import (
	"github.com/spf13/cobra"

	"github.com/studyhall/solver/internal/client"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "solver",
	Short: "Command line client for the assignment solver API",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:3443", "Base URL of the solver API")
	rootCmd.PersistentFlags().StringVarP(&authToken, "token", "t", "", "Bearer token")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(getCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithToken(authToken))
	}
	return client.New(serverURL, opts...)
}
