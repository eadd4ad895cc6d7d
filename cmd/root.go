package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "support-digest",
	Short: "Post daily support issue digests to Slack",
	Long: `support-digest watches labeled GitHub issues for recent support activity,
summarizes what changed with an AI model, and posts a per-product digest to
a Slack channel. Organizations, products, and defaults come from a
config.<team>.yml file; webhooks and API tokens come from the environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior - show help
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}
