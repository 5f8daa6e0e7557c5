package commands

import (
	"github.com/spf13/cobra"
)

// ExitError carries a process exit code out of a command. Analysis
// errors map to 1, unschedulable task sets to 2, inconclusive results
// to 3.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "lale",
	Short: "lale - Static WCET analysis and schedulability for embedded tasks",
	Long: `lale analyzes compiled LLVM IR for worst-case execution time and
decides schedulability of a periodic task set.

Commands:
  analyze     Analyze .ll files and decide schedulability
  platforms   List the supported hardware timing models
  init        Create a run configuration interactively
  version     Print version information

Use "lale [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	// Add subcommands
	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(platformsCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(versionCmd)
}
