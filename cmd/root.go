// Package cmd contains the notelace CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notelace",
	Short: "notelace - a linked, searchable knowledge base for code snippets",
	Long: `notelace stores code-snippet notes, keeps their embeddings and
mention links in sync, and serves hybrid search and grounded question
answering over them.

Running notelace without a subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
