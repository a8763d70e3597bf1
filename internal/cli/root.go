package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "agentci-record",
	Short: "Side-effect recorder for agent-driven runs",
	Long: `agentci-record observes side-effecting operations performed during an
automated or agent-driven execution - file writes/reads/deletes, outbound
network calls, process spawns, and reads of sensitive configuration values -
and persists them as an ordered trace for later policy evaluation.

It is an observer, not a sandbox: operations are recorded, never blocked.

Typical usage:
  agentci-record run -- ./my-agent --task build
  agentci-record trace show .agentci/runs/<run-id>`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentci-record %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Override config file path")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
