package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "durablenotes",
	Short: "Per-user durable note capture with lifecycle decay",
	Long:  "Durablenotes stores each user's thoughts in an isolated, strongly consistent actor whose notes decay from warming to cooling until archived.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
}
