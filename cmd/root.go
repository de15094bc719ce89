// Package cmd defines the pensieve command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pensieve",
	Short: "Chat with your notes",
	Long: `Pensieve answers questions grounded in your personal knowledge base.

Running pensieve without arguments starts an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
