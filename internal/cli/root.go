package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "affinityd",
	Short: "A slow-drifting affinity engine for locations, artifacts, and NPCs",
	Long:  "affinityd tracks how the world feels about a player over time and turns it into subtle affordances. Single Go binary, no LLM calls on the hot path.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tickCmd)
}
