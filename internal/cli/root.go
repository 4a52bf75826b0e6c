package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ideabot",
	Short: "Chat-driven issue intake for GitHub",
	Long: `ideabot turns free-form ideas sent over Telegram into structured
GitHub issues. Each idea is refined into a typed draft, previewed with
create/revise/cancel buttons, and registered on the project board.

Running 'ideabot' without a subcommand is equivalent to 'ideabot run'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the 'run' command
		return runCmd.RunE(cmd, args)
	},
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(blogCmd)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to ideabot.json config file (default: search up directory tree)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
